package engine

import (
	"math"
	"testing"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/tactics"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

func highTactic(t types.TacticType) tactics.Detection {
	return tactics.Detection{Type: t, ThreatLevel: types.ThreatHigh}
}

func TestUpdateConfidenceSignalWeights(t *testing.T) {
	s := Signals{
		Tactics: []tactics.Detection{
			highTactic(types.TacticUrgencyPressure),
			{Type: types.TacticAuthorityClaim, ThreatLevel: types.ThreatMedium},
		},
		Artifacts: []*types.Artifact{
			{Type: types.ArtifactPaymentHandle, Confirmations: 1},
			{Type: types.ArtifactKeyword, Confirmations: 1},
		},
	}

	conf, delta, trend := updateConfidence(0.35, 0.35, 0.15, s)

	want := 0.35 + weightTacticHigh + weightTacticMedium + weightArtifactNew + weightKeyword
	if math.Abs(conf-want) > 1e-9 {
		t.Errorf("expected confidence %v, got %v", want, conf)
	}
	if delta <= 0 {
		t.Errorf("expected positive delta, got %v", delta)
	}
	if trend != types.TrendIncreasing {
		t.Errorf("expected increasing trend, got %q", trend)
	}
}

func TestUpdateConfidenceConfirmedWeighsMore(t *testing.T) {
	fresh := Signals{Artifacts: []*types.Artifact{{Type: types.ArtifactPaymentHandle, Confirmations: 1}}}
	confirmed := Signals{Artifacts: []*types.Artifact{{Type: types.ArtifactPaymentHandle, Confirmations: 2}}}

	c1, _, _ := updateConfidence(0.5, 0.35, 0.15, fresh)
	c2, _, _ := updateConfidence(0.5, 0.35, 0.15, confirmed)
	if c2 <= c1 {
		t.Errorf("confirmed artifact should weigh more: fresh %v confirmed %v", c1, c2)
	}
}

func TestUpdateConfidenceClamped(t *testing.T) {
	s := Signals{Tactics: []tactics.Detection{
		highTactic(types.TacticUrgencyPressure),
		highTactic(types.TacticPaymentRedirect),
		highTactic(types.TacticAccountThreat),
	}}

	conf, _, _ := updateConfidence(0.95, 0.35, 0.15, s)
	if conf > 1 {
		t.Errorf("confidence exceeded 1: %v", conf)
	}
	if conf != 1 {
		t.Errorf("expected saturation at 1, got %v", conf)
	}
}

func TestUpdateConfidenceDecaysTowardBaseline(t *testing.T) {
	conf, delta, _ := updateConfidence(0.8, 0.35, 0.2, Signals{})

	want := 0.8 + 0.2*(0.35-0.8)
	if math.Abs(conf-want) > 1e-9 {
		t.Errorf("expected decay to %v, got %v", want, conf)
	}
	if delta >= 0 {
		t.Errorf("expected negative delta, got %v", delta)
	}

	// Decay also works upward when confidence sits below baseline.
	up, _, _ := updateConfidence(0.1, 0.35, 0.2, Signals{})
	if up <= 0.1 {
		t.Errorf("expected decay upward toward baseline, got %v", up)
	}
}

func TestUpdateConfidenceTrendDeadZone(t *testing.T) {
	// At the baseline with no signals the delta is zero: stable.
	_, _, trend := updateConfidence(0.35, 0.35, 0.15, Signals{})
	if trend != types.TrendStable {
		t.Errorf("expected stable trend, got %q", trend)
	}

	// A tiny decay step inside the dead zone must still read stable.
	_, delta, trend := updateConfidence(0.40, 0.35, 0.15, Signals{})
	if math.Abs(delta) >= trendDeadZone {
		t.Fatalf("test setup: delta %v not inside dead zone", delta)
	}
	if trend != types.TrendStable {
		t.Errorf("expected stable trend inside dead zone, got %q", trend)
	}
}
