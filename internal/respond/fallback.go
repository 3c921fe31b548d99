// internal/respond/fallback.go
package respond

import (
	"fmt"
	"hash/fnv"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Fallback utterances keep the conversation alive when generation fails.
// They are persona-neutral filler a distracted phone user could plausibly
// send in any phase, so a provider outage never leaks as silence or as an
// obviously machine-generated error.
var fallbackLines = map[types.Phase][]string{
	types.PhaseUnknown: {
		"Sorry, who is this?",
		"Hello? I think I missed your message.",
		"I did not understand, can you say that again?",
	},
	types.PhaseProbing: {
		"Sorry, who is this?",
		"Which company are you calling from?",
		"I did not understand, can you tell me again?",
	},
	types.PhaseEngaging: {
		"Sorry, I am a little confused. Can you explain that once more?",
		"One minute, my phone is acting up. What should I do?",
		"Can you say that again slowly?",
	},
	types.PhaseDraining: {
		"It is not going through. Can you send the details once more?",
		"I think I typed something wrong, please send it again.",
		"My internet is very slow today, give me a minute.",
	},
	types.PhaseExiting: {
		"I have to go now, someone is at the door.",
		"I will check and message you later.",
		"My phone battery is about to die, I will reply later.",
	},
}

// Fallback returns a deterministic in-persona filler line for the phase.
// The same (session, turn) always yields the same line, so retries after a
// persistence failure do not change the outgoing text.
func Fallback(phase types.Phase, sessionID types.SessionID, turn int) string {
	lines, ok := fallbackLines[phase]
	if !ok {
		lines = fallbackLines[types.PhaseUnknown]
	}
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d", sessionID, turn)
	return lines[h.Sum64()%uint64(len(lines))]
}
