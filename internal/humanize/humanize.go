// internal/humanize/humanize.go
package humanize

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"unicode"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

const (
	maxTypos        = 2
	minTruncateLen  = 30
	truncateKeepMin = 0.5
	truncateKeepMax = 0.8
)

// Apply rewrites a generated reply with persona-plausible texting
// artifacts and returns the final text plus the metadata the exposure
// monitor consumes. The same (session, turn, reply) always produces the
// same output, so a retried turn resends identical text.
//
// The RNG draw order is fixed: delay, per-word typo draws, truncation
// draw, then positional draws. Reordering the draws changes every
// historical transcript.
func Apply(profile *persona.Profile, sessionID types.SessionID, turn int, reply string) (string, *types.Humanization) {
	rng := rand.New(rand.NewSource(seed(sessionID, turn)))

	h := &types.Humanization{
		DelaySeconds: drawDelay(rng, profile.Delay),
	}

	final := reply
	typoBudget := 0
	for range strings.Fields(reply) {
		if rng.Float64() < profile.TypoRate && typoBudget < maxTypos {
			typoBudget++
		}
	}

	truncate := rng.Float64() < profile.TruncateRate

	if typoBudget > 0 {
		final, h.TypoCount = injectTypos(rng, final, typoBudget)
	}
	if truncate {
		if cut, ok := truncateAt(rng, final); ok {
			final = cut
			h.Truncated = true
		}
	}

	return final, h
}

func seed(sessionID types.SessionID, turn int) int64 {
	fh := fnv.New64a()
	fmt.Fprintf(fh, "%s|%d", sessionID, turn)
	return int64(fh.Sum64())
}

// drawDelay picks a typing delay inside the persona envelope, rounded to
// a tenth of a second.
func drawDelay(rng *rand.Rand, env persona.DelayEnvelope) float64 {
	d := env.MinSeconds + rng.Float64()*(env.MaxSeconds-env.MinSeconds)
	return math.Round(d*10) / 10
}

// injectTypos swaps adjacent letters inside words. Positions where both
// runes are letters are eligible; the message is returned unchanged when
// it has none.
func injectTypos(rng *rand.Rand, text string, count int) (string, int) {
	runes := []rune(text)

	var eligible []int
	for i := 0; i+1 < len(runes); i++ {
		if unicode.IsLetter(runes[i]) && unicode.IsLetter(runes[i+1]) && runes[i] != runes[i+1] {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return text, 0
	}

	applied := 0
	used := map[int]bool{}
	for i := 0; i < count && applied < len(eligible); i++ {
		pos := eligible[rng.Intn(len(eligible))]
		// Re-swapping the same pair would undo the typo.
		if used[pos] || used[pos-1] || used[pos+1] {
			continue
		}
		runes[pos], runes[pos+1] = runes[pos+1], runes[pos]
		used[pos] = true
		applied++
	}
	return string(runes), applied
}

// truncateAt cuts the message at a word boundary somewhere past the
// halfway mark, the way a message sent too early stops. Short messages
// are never cut.
func truncateAt(rng *rand.Rand, text string) (string, bool) {
	runes := []rune(text)
	if len(runes) < minTruncateLen {
		return text, false
	}

	frac := truncateKeepMin + rng.Float64()*(truncateKeepMax-truncateKeepMin)
	limit := int(float64(len(runes)) * frac)

	cut := -1
	for i := 0; i < limit; i++ {
		if unicode.IsSpace(runes[i]) {
			cut = i
		}
	}
	if cut <= 0 {
		return text, false
	}

	out := strings.TrimRight(string(runes[:cut]), " \t.,!?")
	if out == "" {
		return text, false
	}
	return out, true
}
