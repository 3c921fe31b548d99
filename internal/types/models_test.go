// internal/types/models_test.go
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionSerialization(t *testing.T) {
	sess := Session{
		ID:         NewSessionID(),
		Key:        NewSessionKey("sms", "15550001111"),
		Channel:    ChannelSMS,
		Persona:    PersonaElderlyUncle,
		Status:     StatusActive,
		Phase:      PhaseProbing,
		Confidence: 0.42,
		Tone:       ToneVector{Confusion: 0.6, Compliance: 0.5},
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	data, err := json.Marshal(sess)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Session
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	if decoded.Key != sess.Key {
		t.Errorf("expected key %s, got %s", sess.Key, decoded.Key)
	}
	if decoded.Phase != PhaseProbing {
		t.Errorf("expected phase %s, got %s", PhaseProbing, decoded.Phase)
	}
	if decoded.CompletedAt != nil {
		t.Error("expected nil CompletedAt for an open session")
	}
}

func TestSessionStatusTerminal(t *testing.T) {
	cases := []struct {
		status   SessionStatus
		terminal bool
	}{
		{StatusActive, false},
		{StatusCompleted, true},
		{StatusTerminated, true},
		{StatusBurned, true},
	}
	for _, tc := range cases {
		if got := tc.status.Terminal(); got != tc.terminal {
			t.Errorf("%s: expected terminal=%v, got %v", tc.status, tc.terminal, got)
		}
	}
}

func TestPhaseOrder(t *testing.T) {
	forward := []Phase{PhaseUnknown, PhaseProbing, PhaseEngaging, PhaseDraining, PhaseExiting, PhaseTerminated}
	for i := 1; i < len(forward); i++ {
		if forward[i].Order() <= forward[i-1].Order() {
			t.Errorf("expected %s to order after %s", forward[i], forward[i-1])
		}
	}
	if Phase("BOGUS").Order() != -1 {
		t.Errorf("expected -1 for unknown phase, got %d", Phase("BOGUS").Order())
	}
	if PhaseDraining.Terminal() {
		t.Error("DRAINING should not be terminal")
	}
	if !PhaseExiting.Terminal() || !PhaseTerminated.Terminal() {
		t.Error("EXITING and TERMINATED should be terminal")
	}
}

func TestToneVectorMaxAbsDelta(t *testing.T) {
	a := ToneVector{Confusion: 0.5, Anxiety: 0.2, Urgency: 0.1}
	b := ToneVector{Confusion: 0.7, Anxiety: 0.9, Urgency: 0.1}
	if d := a.MaxAbsDelta(b); d != 0.7 {
		t.Errorf("expected max delta 0.7, got %v", d)
	}
	if d := a.MaxAbsDelta(a); d != 0 {
		t.Errorf("expected zero delta against self, got %v", d)
	}
}

func TestDecisionResponderView(t *testing.T) {
	d := &Decision{
		Phase:        PhaseEngaging,
		Confidence:   0.81,
		ExposureRisk: 0.12,
		Initiative:   0.9,
		Tone:         ToneVector{Anxiety: 0.4},
		Tactics: []*TacticEvent{
			{Type: TacticUrgencyPressure},
			{Type: TacticPaymentRedirect},
		},
	}

	v := d.ResponderView()
	if v.Phase != PhaseEngaging || v.Confidence != 0.81 {
		t.Errorf("view did not carry decision fields: %+v", v)
	}
	if len(v.Tactics) != 2 || v.Tactics[0] != TacticUrgencyPressure {
		t.Errorf("expected tactic types projected, got %v", v.Tactics)
	}
}
