package domain

import (
	"testing"
	"time"
)

func TestAllPaid(t *testing.T) {
	p := CollaborativePurchase{Participants: []Participant{
		{Email: "a@example.com", Status: ParticipantPaid},
		{Email: "b@example.com", Status: ParticipantPending},
	}}
	if p.AllPaid() {
		t.Fatalf("expected AllPaid to be false with a pending participant")
	}
	p.Participants[1].Status = ParticipantPaid
	if !p.AllPaid() {
		t.Fatalf("expected AllPaid to be true when every participant paid")
	}
}

func TestAllPaidEmptyParticipants(t *testing.T) {
	p := CollaborativePurchase{}
	if p.AllPaid() {
		t.Fatalf("purchase without participants must not count as all paid")
	}
}

func TestTimeRemainingFloorsAtZero(t *testing.T) {
	now := time.Now()
	p := CollaborativePurchase{Deadline: now.Add(-time.Hour)}
	if got := p.TimeRemaining(now); got != 0 {
		t.Fatalf("expected 0 after deadline, got %v", got)
	}
	p.Deadline = now.Add(time.Minute)
	if got := p.TimeRemaining(now); got != time.Minute {
		t.Fatalf("expected 1m remaining, got %v", got)
	}
}

func TestParticipantByLink(t *testing.T) {
	p := CollaborativePurchase{Participants: []Participant{
		{Email: "a@example.com", PaymentLink: "aaa"},
		{Email: "b@example.com", PaymentLink: "bbb"},
	}}
	got := p.ParticipantByLink("bbb")
	if got == nil || got.Email != "b@example.com" {
		t.Fatalf("expected participant b, got %+v", got)
	}
	if p.ParticipantByLink("zzz") != nil {
		t.Fatalf("expected nil for unknown link")
	}
}
