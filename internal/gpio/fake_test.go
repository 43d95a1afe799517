package gpio

import (
	"errors"
	"sync"
	"testing"
)

func TestFlagTakeClears(t *testing.T) {
	var f Flag

	if f.Take() {
		t.Error("new flag should not be set")
	}

	f.Set()
	f.Set() // edges coalesce
	if !f.Pending() {
		t.Error("expected pending after Set")
	}
	if !f.Take() {
		t.Error("expected Take to return true")
	}
	if f.Take() {
		t.Error("second Take should return false")
	}
}

func TestFlagConcurrentProducer(t *testing.T) {
	var f Flag
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			f.Set()
		}
	}()
	wg.Wait()

	if !f.Take() {
		t.Error("expected latched edge")
	}
}

func TestFakeTapLineTrigger(t *testing.T) {
	f := NewFakeTapLine()

	if f.Take() {
		t.Error("should not be latched initially")
	}

	f.Trigger()
	if !f.Pending() {
		t.Error("expected pending after trigger")
	}
	if !f.Take() {
		t.Error("expected Take after trigger")
	}
	if f.Pending() {
		t.Error("Take should clear the latch")
	}
}

func TestFakeTapLineLevels(t *testing.T) {
	f := NewFakeTapLine(true, false)

	level, err := f.Level()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !level {
		t.Error("level 0: expected high")
	}

	level, _ = f.Level()
	if level {
		t.Error("level 1: expected low")
	}

	// Last level repeats
	level, _ = f.Level()
	if level {
		t.Error("level 2 (repeat): expected low")
	}
}

func TestFakeTapLineNoLevels(t *testing.T) {
	f := NewFakeTapLine()

	level, err := f.Level()
	if err != nil || level {
		t.Errorf("expected (false, nil), got (%v, %v)", level, err)
	}
}

func TestFakeTapLineError(t *testing.T) {
	f := NewFakeTapLine(true)
	f.ReadError = errors.New("simulated error")

	_, err := f.Level()
	if err == nil {
		t.Error("expected error to be returned")
	}
	if err.Error() != "simulated error" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFakeTapLineClose(t *testing.T) {
	f := NewFakeTapLine()

	if f.Closed {
		t.Error("should not be closed initially")
	}

	err := f.Close()
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestFakeTapLineReset(t *testing.T) {
	f := NewFakeTapLine(true, false)
	f.Level()
	f.Trigger()
	f.Close()

	f.Reset()

	if f.Pending() || f.Closed {
		t.Error("reset should clear latch and closed state")
	}
	level, _ := f.Level()
	if !level {
		t.Error("after reset: expected first level again")
	}
}
