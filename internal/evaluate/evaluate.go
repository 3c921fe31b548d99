// internal/evaluate/evaluate.go
package evaluate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Scoring targets, calibrated to the default persona budgets: holding
// the counterparty for depthTarget of their turns and banking the
// default artifact quota both score full marks.
const (
	depthTarget      = 15.0
	extractionTarget = 3.0

	// smoothnessRef normalizes mean per-turn tone movement. Sustained
	// movement at or above the steepest persona drift rate scores zero.
	smoothnessRef = 0.25

	highConfidenceFloor = 0.80

	repetitionPenalty = 0.08
	jerkPenalty       = 0.30
	prematurePenalty  = 0.10

	// Evidence credits subtracted from the false positive risk. A
	// verdict backed by hard tactics and confirmed artifacts carries
	// little risk of being noise.
	creditTacticHigh        = 0.20
	creditTacticMedium      = 0.10
	creditArtifactConfirmed = 0.15
)

// Overall quality blend. Engagement and extraction dominate; detection
// confidence gets a small weight because it is mostly the
// counterparty's doing.
const (
	weightDepth       = 0.30
	weightExtraction  = 0.25
	weightNaturalness = 0.20
	weightSmoothness  = 0.15
	weightDetection   = 0.10
)

// Sources is the read surface evaluation needs.
type Sources struct {
	Messages  types.MessageStore
	Evolution types.EvolutionStore
	Artifacts types.ArtifactStore
	Tactics   types.TacticStore
}

// messageLoadLimit comfortably covers a full session; the turn budget
// bounds conversations well below this.
const messageLoadLimit = 500

// ForSession loads a session's records and folds them into its
// evaluation summary.
func ForSession(ctx context.Context, src Sources, sess *types.Session) (*types.Evaluation, error) {
	msgs, err := src.Messages.Recent(ctx, sess.ID, messageLoadLimit)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	// Recent returns newest first; the fold wants turn order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}

	history, err := src.Evolution.History(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load evolution: %w", err)
	}
	artifacts, err := src.Artifacts.List(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	tactics, err := src.Tactics.List(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("load tactics: %w", err)
	}
	return Aggregate(sess, msgs, history, artifacts, tactics, time.Now()), nil
}

// Aggregate folds a session's persisted records into its evaluation
// summary. Pure: identical inputs produce an identical summary.
// Messages and history are expected in turn order.
func Aggregate(sess *types.Session, msgs []*types.Message, history []*types.StateEvolution,
	artifacts []*types.Artifact, tactics []*types.TacticEvent, at time.Time) *types.Evaluation {
	ev := &types.Evaluation{
		SessionID:    sess.ID,
		CalculatedAt: at.UTC(),
	}

	var agent []*types.Message
	scammerTurns := 0
	for _, m := range msgs {
		switch m.Sender {
		case types.SenderAgent:
			agent = append(agent, m)
		case types.SenderScammer:
			scammerTurns++
		}
	}
	ev.EngagementDepth = clamp01(float64(scammerTurns) / depthTarget)

	for _, a := range artifacts {
		ev.UniqueArtifacts++
		if a.Confirmed {
			ev.ConfirmedArtifacts++
		}
		if a.Confidence >= highConfidenceFloor {
			ev.HighConfidence++
		}
	}
	ev.ExtractionEfficiency = clamp01(float64(ev.ConfirmedArtifacts) / extractionTarget)

	ev.DetectionConfidence = sess.Confidence
	ev.FalsePositiveRisk = falsePositiveRisk(sess, tactics, ev.ConfirmedArtifacts)

	var delaySum float64
	delayed := 0
	for _, m := range agent {
		if m.Humanization == nil {
			continue
		}
		delaySum += m.Humanization.DelaySeconds
		delayed++
		ev.TypoCount += m.Humanization.TypoCount
		if m.Humanization.Truncated {
			ev.Truncations++
		}
	}
	if delayed > 0 {
		ev.AvgResponseDelay = delaySum / float64(delayed)
	}

	ev.ToneDriftSmoothness = toneSmoothness(history)
	for _, rec := range history {
		if !rec.Transitioned {
			continue
		}
		ev.TransitionCount++
		if rec.Phase.Terminal() && rec.PreviousPhase.Order() < types.PhaseDraining.Order() {
			ev.PrematureExits++
		}
	}

	ev.Repetitions = countRepetitions(agent)
	ev.ClarificationQuestions = countClarifications(agent)

	ev.Naturalness = clamp01(1 -
		repetitionPenalty*float64(ev.Repetitions) -
		jerkPenalty*(1-ev.ToneDriftSmoothness))

	ev.OverallQuality = clamp01(weightDepth*ev.EngagementDepth +
		weightExtraction*ev.ExtractionEfficiency +
		weightNaturalness*ev.Naturalness +
		weightSmoothness*ev.ToneDriftSmoothness +
		weightDetection*ev.DetectionConfidence -
		prematurePenalty*float64(ev.PrematureExits))

	return ev
}

// falsePositiveRisk estimates how much of a detection verdict rests on
// soft evidence alone. No verdict means no risk.
func falsePositiveRisk(sess *types.Session, tactics []*types.TacticEvent, confirmed int) float64 {
	if !sess.ScamDetected {
		return 0
	}
	risk := sess.Confidence
	for _, t := range tactics {
		switch t.ThreatLevel {
		case types.ThreatHigh:
			risk -= creditTacticHigh
		case types.ThreatMedium:
			risk -= creditTacticMedium
		}
	}
	risk -= creditArtifactConfirmed * float64(confirmed)
	return clamp01(risk)
}

// toneSmoothness scores how gradually the displayed tone moved across
// the session. A tone that lurches between turns scores low.
func toneSmoothness(history []*types.StateEvolution) float64 {
	if len(history) < 2 {
		return 1
	}
	var sum float64
	for i := 1; i < len(history); i++ {
		sum += history[i].Tone.MaxAbsDelta(history[i-1].Tone)
	}
	mean := sum / float64(len(history)-1)
	return clamp01(1 - mean/smoothnessRef)
}

// countRepetitions counts agent messages whose normalized text already
// appeared earlier in the session.
func countRepetitions(agent []*types.Message) int {
	seen := make(map[string]struct{}, len(agent))
	n := 0
	for _, m := range agent {
		key := strings.ToLower(strings.Join(strings.Fields(m.Text), " "))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			n++
			continue
		}
		seen[key] = struct{}{}
	}
	return n
}

func countClarifications(agent []*types.Message) int {
	n := 0
	for _, m := range agent {
		if strings.Contains(m.Text, "?") {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
