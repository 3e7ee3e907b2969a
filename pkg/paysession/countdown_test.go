package paysession

import (
	"testing"
	"time"
)

func TestCountdownReachesZero(t *testing.T) {
	c := startCountdown(5*time.Millisecond, time.Millisecond)
	defer c.Stop()

	select {
	case <-c.Done():
	case <-time.After(time.Second):
		t.Fatal("countdown never expired")
	}
	if !c.Expired() {
		t.Error("expected countdown to be expired")
	}
	if c.Remaining() != 0 {
		t.Errorf("remaining = %v, want 0", c.Remaining())
	}
}

func TestCountdownStaysAtZero(t *testing.T) {
	c := startCountdown(2*time.Millisecond, time.Millisecond)
	defer c.Stop()

	<-c.Done()
	time.Sleep(5 * time.Millisecond)
	if c.Remaining() != 0 {
		t.Errorf("remaining = %v, want 0 after expiry", c.Remaining())
	}
}

func TestCountdownNegativeInitial(t *testing.T) {
	c := startCountdown(-time.Second, time.Millisecond)
	defer c.Stop()

	if c.Remaining() != 0 {
		t.Errorf("remaining = %v, want 0 for negative start", c.Remaining())
	}
}

func TestCountdownStopIsIdempotent(t *testing.T) {
	c := startCountdown(time.Hour, time.Millisecond)
	c.Stop()
	c.Stop()

	select {
	case <-c.Done():
	default:
		t.Fatal("Done must be closed after Stop")
	}
}
