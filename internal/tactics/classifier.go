// internal/tactics/classifier.go
package tactics

import (
	"regexp"
	"strings"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Detection is one manipulation pattern spotted in a message. Several
// may fire on the same text.
type Detection struct {
	Type        types.TacticType
	Turn        int
	Description string
	Keywords    []string
	ThreatLevel types.ThreatLevel
}

// threatLevels is the fixed category to level mapping.
var threatLevels = map[types.TacticType]types.ThreatLevel{
	types.TacticUrgencyPressure:  types.ThreatHigh,
	types.TacticPaymentRedirect:  types.ThreatHigh,
	types.TacticAccountThreat:    types.ThreatHigh,
	types.TacticAuthorityClaim:   types.ThreatMedium,
	types.TacticVerificationScam: types.ThreatMedium,
}

type rule struct {
	tactic      types.TacticType
	description string
	re          *regexp.Regexp
}

func phraseRule(tactic types.TacticType, description string, phrases ...string) rule {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return rule{
		tactic:      tactic,
		description: description,
		re:          regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

var rules = []rule{
	phraseRule(types.TacticUrgencyPressure,
		"deadline and time-pressure language",
		"immediately", "urgent", "urgently", "right now", "today",
		"within 24 hours", "hurry", "last chance", "expires", "expire",
		"act now", "final warning", "final notice"),
	phraseRule(types.TacticAuthorityClaim,
		"claims to speak for an institution or authority",
		"bank officer", "rbi", "reserve bank", "income tax", "police",
		"customs", "government", "official", "head office", "cyber cell",
		"courier department", "telecom department", "court"),
	phraseRule(types.TacticPaymentRedirect,
		"redirects payment to an attacker-controlled destination",
		"pay to", "send money", "transfer to", "upi", "google pay",
		"gpay", "phonepe", "paytm", "payment link", "scan qr",
		"scan the qr", "wallet", "send rs", "pay rs"),
	phraseRule(types.TacticAccountThreat,
		"threatens loss of account access or legal consequences",
		"account will be blocked", "account is blocked", "account blocked",
		"account suspended", "account frozen", "unblock", "deactivated",
		"deactivate", "legal action", "arrest", "warrant", "account closure"),
	phraseRule(types.TacticVerificationScam,
		"requests verification, credentials, or identity confirmation",
		"verify", "verification", "kyc", "re-kyc", "update your details",
		"confirm your identity", "validate", "otp", "one time password"),
}

// Classify scans message text for manipulation tactics. Deterministic
// and side-effect-free; empty or unmatched text yields no detections.
func Classify(text string, turn int) []Detection {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []Detection
	for _, r := range rules {
		matches := r.re.FindAllString(text, -1)
		if len(matches) == 0 {
			continue
		}
		seen := make(map[string]bool, len(matches))
		keywords := make([]string, 0, len(matches))
		for _, m := range matches {
			k := strings.ToLower(m)
			if seen[k] {
				continue
			}
			seen[k] = true
			keywords = append(keywords, k)
		}
		out = append(out, Detection{
			Type:        r.tactic,
			Turn:        turn,
			Description: r.description,
			Keywords:    keywords,
			ThreatLevel: threatLevels[r.tactic],
		})
	}
	return out
}

// Level returns the fixed threat level for a tactic category.
func Level(t types.TacticType) types.ThreatLevel {
	if l, ok := threatLevels[t]; ok {
		return l
	}
	return types.ThreatLow
}
