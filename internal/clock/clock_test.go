package clock

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	m := NewManual(10)
	if got := m.Height(); got != 10 {
		t.Fatalf("Height() = %d, want 10", got)
	}
	if got := m.Advance(5); got != 15 {
		t.Fatalf("Advance(5) = %d, want 15", got)
	}
	if got := m.Height(); got != 15 {
		t.Fatalf("Height() after advance = %d, want 15", got)
	}
}

func TestManualSet(t *testing.T) {
	m := NewManual(0)
	m.Set(42)
	if got := m.Height(); got != 42 {
		t.Fatalf("Height() after Set = %d, want 42", got)
	}
}

func TestTickingAdvancesOnSchedule(t *testing.T) {
	tk := NewTicking(0, 10*time.Millisecond)
	tk.Start()
	defer tk.Stop()

	time.Sleep(55 * time.Millisecond)

	if got := tk.Height(); got < 3 {
		t.Fatalf("Height() after ~55ms at 10ms period = %d, want >= 3", got)
	}
}

func TestTickingStopHaltsAdvance(t *testing.T) {
	tk := NewTicking(0, 5*time.Millisecond)
	tk.Start()
	time.Sleep(20 * time.Millisecond)
	tk.Stop()

	stopped := tk.Height()
	time.Sleep(20 * time.Millisecond)
	if got := tk.Height(); got != stopped {
		t.Fatalf("Height() kept advancing after Stop: %d -> %d", stopped, got)
	}
}
