// internal/engine/exposure.go
package engine

import (
	"strings"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const (
	// exposureRetention decays the previous risk each turn, so good
	// behavior slowly walks suspicion back.
	exposureRetention = 0.85

	// Repetition: near-duplicate agent replies within the window raise
	// risk proportionally to the best trigram similarity found.
	repetitionWindow = 5
	repetitionFloor  = 0.4
	repetitionScale  = 0.25

	// Pace: replies outside the persona's delay envelope. Too fast
	// reads as automation; too slow is merely odd.
	paceFastPenalty = 0.1
	paceSlowPenalty = 0.05

	// Stagnation: signal-free turns beyond the grace window, with an
	// escalating step so a stalled session burns out rather than
	// idling forever.
	stagnationGrace = 4
	stagnationStep  = 0.03
)

// updateExposure estimates the risk that the counterparty has spotted
// the automation. agentHistory is most-recent-first and carries the
// humanization metadata the pace penalty reads.
func updateExposure(prev float64, agentHistory []*types.Message, delay persona.DelayEnvelope, stagnantTurns int) (risk, delta float64) {
	risk = prev * exposureRetention

	if len(agentHistory) > 1 {
		latest := agentHistory[0].Text
		best := 0.0
		for i := 1; i < len(agentHistory) && i <= repetitionWindow; i++ {
			if sim := similarity(latest, agentHistory[i].Text); sim > best {
				best = sim
			}
		}
		if best >= repetitionFloor {
			risk += best * repetitionScale
		}
	}

	if len(agentHistory) > 0 && agentHistory[0].Humanization != nil {
		d := agentHistory[0].Humanization.DelaySeconds
		if d < delay.MinSeconds {
			risk += paceFastPenalty
		} else if d > delay.MaxSeconds {
			risk += paceSlowPenalty
		}
	}

	if stagnantTurns > stagnationGrace {
		risk += stagnationStep * float64(stagnantTurns-stagnationGrace)
	}

	risk = clamp01(risk)
	return risk, risk - prev
}

// similarity is the trigram Jaccard overlap of two normalized strings.
func similarity(a, b string) float64 {
	ta, tb := trigrams(a), trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	inter := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			inter++
		}
	}
	union := len(ta) + len(tb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func trigrams(s string) map[string]struct{} {
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	runes := []rune(s)
	set := make(map[string]struct{})
	if len(runes) < 3 {
		if len(runes) > 0 {
			set[string(runes)] = struct{}{}
		}
		return set
	}
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}
