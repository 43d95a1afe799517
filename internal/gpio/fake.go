package gpio

// FakeTapLine is a test double driven by Trigger and scripted levels.
type FakeTapLine struct {
	flag Flag

	// Levels contains scripted line levels. Each call to Level() consumes the
	// next one; the last is repeated. Empty means low.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Level()
	ReadError error
}

// NewFakeTapLine creates a FakeTapLine with the given levels.
func NewFakeTapLine(levels ...bool) *FakeTapLine {
	return &FakeTapLine{Levels: levels}
}

// Trigger simulates a rising edge from the accelerometer.
func (f *FakeTapLine) Trigger() {
	f.flag.Set()
}

// Take consumes a latched edge.
func (f *FakeTapLine) Take() bool {
	return f.flag.Take()
}

// Pending reports a latched edge without consuming it.
func (f *FakeTapLine) Pending() bool {
	return f.flag.Pending()
}

// Level returns the next scripted level.
func (f *FakeTapLine) Level() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Levels) == 0 {
		return false, nil
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}
	return level, nil
}

// Close marks the line as closed.
func (f *FakeTapLine) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the levels and clears the latch.
func (f *FakeTapLine) Reset() {
	f.index = 0
	f.Closed = false
	f.flag.Take()
}
