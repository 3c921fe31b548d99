// internal/engine/tone.go
package engine

import (
	"math"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// closeOutTone is the posture a high-initiative agent converges on:
// calm, cooperative, steering the conversation to a finish.
var closeOutTone = types.ToneVector{
	Confusion:     0.2,
	Anxiety:       0.2,
	Urgency:       0.1,
	Compliance:    0.9,
	CognitiveLoad: 0.3,
}

// closeOutBlend scales how strongly initiative pulls the target toward
// the close-out posture.
const closeOutBlend = 0.6

// artifactComplianceBump raises the compliance target per structured
// artifact, modeling the agent's ostensible cooperation.
const artifactComplianceBump = 0.15

type toneResult struct {
	Tone           types.ToneVector
	Initiative     float64
	EffectiveDrift float64
}

// initiativeTarget grows with engagement length and shrinks with
// exposure risk: a long, safe conversation earns the agent license to
// steer.
func initiativeTarget(turn int, prevExposure float64) float64 {
	engagement := math.Min(1, float64(turn)/20.0)
	return clamp01(0.6*engagement + 0.4*(1-prevExposure))
}

// toneTarget derives the turn's target vector from the fired signals,
// starting from the persona seed so a quiet turn drifts home.
func toneTarget(seed types.ToneVector, s Signals) types.ToneVector {
	t := seed
	for _, d := range s.Tactics {
		switch d.Type {
		case types.TacticUrgencyPressure:
			t.Urgency = math.Max(t.Urgency, 1.0)
			t.Anxiety = math.Max(t.Anxiety, 0.8)
		case types.TacticAccountThreat:
			t.Anxiety = math.Max(t.Anxiety, 1.0)
			t.Confusion = math.Max(t.Confusion, 0.7)
		case types.TacticAuthorityClaim:
			t.Compliance = math.Max(t.Compliance, 0.8)
			t.CognitiveLoad = math.Max(t.CognitiveLoad, 0.6)
		case types.TacticVerificationScam:
			t.Confusion = math.Max(t.Confusion, 0.8)
			t.CognitiveLoad = math.Max(t.CognitiveLoad, 0.7)
		case types.TacticPaymentRedirect:
			t.CognitiveLoad = math.Max(t.CognitiveLoad, 0.9)
			t.Urgency = math.Max(t.Urgency, 0.7)
		}
	}
	for _, a := range s.Artifacts {
		if a.Type != types.ArtifactKeyword {
			t.Compliance = math.Min(1, t.Compliance+artifactComplianceBump)
		}
	}
	return t
}

func step(cur, target, drift float64) float64 {
	return clamp01(cur + drift*(target-cur))
}

func lerpVec(a, b types.ToneVector, f float64) types.ToneVector {
	return types.ToneVector{
		Confusion:     a.Confusion + f*(b.Confusion-a.Confusion),
		Anxiety:       a.Anxiety + f*(b.Anxiety-a.Anxiety),
		Urgency:       a.Urgency + f*(b.Urgency-a.Urgency),
		Compliance:    a.Compliance + f*(b.Compliance-a.Compliance),
		CognitiveLoad: a.CognitiveLoad + f*(b.CognitiveLoad-a.CognitiveLoad),
	}
}

// updateTone advances initiative and the tone vector one bounded step.
// Initiative modulates the effective drift but the step never exceeds
// the persona drift rate per component, which is the smoothness
// guarantee the audit trail is checked against.
func updateTone(cur types.ToneVector, curInitiative float64, seed types.ToneVector, driftRate float64, s Signals, turn int, prevExposure float64) toneResult {
	target := initiativeTarget(turn, prevExposure)
	initiative := clamp01(curInitiative + driftRate*(target-curInitiative))

	goal := toneTarget(seed, s)
	goal = lerpVec(goal, closeOutTone, closeOutBlend*initiative)

	eff := driftRate * (0.5 + 0.5*initiative)
	next := types.ToneVector{
		Confusion:     step(cur.Confusion, goal.Confusion, eff),
		Anxiety:       step(cur.Anxiety, goal.Anxiety, eff),
		Urgency:       step(cur.Urgency, goal.Urgency, eff),
		Compliance:    step(cur.Compliance, goal.Compliance, eff),
		CognitiveLoad: step(cur.CognitiveLoad, goal.CognitiveLoad, eff),
	}
	return toneResult{Tone: next, Initiative: initiative, EffectiveDrift: eff}
}
