// internal/engine/signals.go
package engine

import (
	"sort"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/tactics"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Signals is everything the scoring stages consume for one turn: the
// classifier detections plus the turn's artifact sightings in their
// projected post-dedup state. Nothing here has touched storage yet.
type Signals struct {
	Tactics   []tactics.Detection
	Artifacts []*types.Artifact
}

func (s Signals) Empty() bool {
	return len(s.Tactics) == 0 && len(s.Artifacts) == 0
}

// NewArtifacts counts first sightings (as opposed to confirmations).
func (s Signals) NewArtifacts() int {
	n := 0
	for _, a := range s.Artifacts {
		if a.Confirmations <= 1 {
			n++
		}
	}
	return n
}

// IDs returns the fired signal identifiers for the audit record, in a
// stable order.
func (s Signals) IDs() []string {
	out := make([]string, 0, len(s.Tactics)+len(s.Artifacts))
	for _, d := range s.Tactics {
		out = append(out, "tactic:"+string(d.Type))
	}
	for _, a := range s.Artifacts {
		out = append(out, "artifact:"+string(a.Type)+":"+a.Normalized)
	}
	sort.Strings(out)
	return out
}
