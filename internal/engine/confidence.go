// internal/engine/confidence.go
package engine

import (
	"math"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Per-signal confidence weights. High-threat tactics and confirmed
// artifacts move the score hardest; a bare keyword barely registers.
const (
	weightTacticHigh        = 0.15
	weightTacticMedium      = 0.08
	weightTacticLow         = 0.04
	weightArtifactConfirmed = 0.12
	weightArtifactNew       = 0.08
	weightKeyword           = 0.03

	// trendDeadZone suppresses trend chatter from tiny oscillations.
	trendDeadZone = 0.02
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func signalWeight(s Signals) float64 {
	var w float64
	for _, d := range s.Tactics {
		switch d.ThreatLevel {
		case types.ThreatHigh:
			w += weightTacticHigh
		case types.ThreatMedium:
			w += weightTacticMedium
		default:
			w += weightTacticLow
		}
	}
	for _, a := range s.Artifacts {
		switch {
		case a.Type == types.ArtifactKeyword:
			w += weightKeyword
		case a.Confirmations > 1:
			w += weightArtifactConfirmed
		default:
			w += weightArtifactNew
		}
	}
	return w
}

// updateConfidence applies the turn's signal weights to the previous
// confidence, clamped to [0,1]. A turn with no signals decays toward
// the persona baseline at the drift rate, modeling attention fading.
func updateConfidence(prev, baseline, driftRate float64, s Signals) (conf, delta float64, trend types.Trend) {
	if s.Empty() {
		conf = clamp01(prev + driftRate*(baseline-prev))
	} else {
		conf = clamp01(prev + signalWeight(s))
	}
	delta = conf - prev
	switch {
	case math.Abs(delta) < trendDeadZone:
		trend = types.TrendStable
	case delta > 0:
		trend = types.TrendIncreasing
	default:
		trend = types.TrendDecreasing
	}
	return conf, delta, trend
}
