package queue

import "testing"

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	if c.Now().IsZero() {
		t.Fatal("RealClock.Now() returned zero time")
	}
	select {
	case <-c.After(0):
	default:
		t.Fatal("RealClock.After(0) should fire immediately")
	}
}
