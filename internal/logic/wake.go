package logic

// Classify maps the platform wake cause to a WakeReason and counts the boot.
// Any cause that is not explicitly a timer or gesture wake is a ColdBoot.
// The very first boot (BootCount becomes 1) forces the Dashboard screen so a
// stale persisted screen never leaks into the first impression.
func Classify(cause WakeCause, r *Retained) WakeReason {
	r.BootCount++

	switch cause {
	case CauseTimer:
		return TimerWake
	case CauseExt0, CauseGPIO:
		return GestureWake
	}

	if r.BootCount == 1 {
		r.Screen = Dashboard
	}
	return ColdBoot
}

// Interactive reports whether reason starts an interactive session.
func Interactive(reason WakeReason) bool {
	return reason == ColdBoot || reason == GestureWake
}

// StateFor returns the session state entered for reason.
func StateFor(reason WakeReason) SessionState {
	if Interactive(reason) {
		return InteractiveSession
	}
	return ScheduledMeasurement
}
