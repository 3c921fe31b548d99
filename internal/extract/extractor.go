// internal/extract/extractor.go
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Candidate is one artifact sighting within a single message. Scanning
// is deterministic and side-effect-free; dedup across turns happens in
// the artifact store.
type Candidate struct {
	Type       types.ArtifactType
	Value      string
	Normalized string
	Method     string
	Confidence float64
	Context    string
	Detail     types.ArtifactDetail
}

var (
	rePaymentHandle = regexp.MustCompile(`[A-Za-z0-9][A-Za-z0-9._-]*@[A-Za-z][A-Za-z0-9]{2,}`)
	reLink          = regexp.MustCompile(`(?i)(?:https?://[^\s<>"']+|www\.[^\s<>"']+|\b(?:bit\.ly|tinyurl\.com|t\.co|goo\.gl|rb\.gy|cutt\.ly|is\.gd)/[A-Za-z0-9_-]+)`)
	rePhone         = regexp.MustCompile(`(?:\+?91[\s-]?|0)?[6-9]\d{4}[\s-]?\d{5}\b`)
	reBankAccount   = regexp.MustCompile(`\b\d{9,18}\b`)
	reIFSC          = regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)
	reDigits        = regexp.MustCompile(`\d`)
)

// keywordTable maps suspicious keywords worth recording as intelligence
// to a category. Tactic vocabulary (verify, urgent, blocked) lives in
// the classifier, not here.
var keywordTable = map[string]string{
	"otp":            "credential_probe",
	"kyc":            "credential_probe",
	"aadhaar":        "credential_probe",
	"pan card":       "credential_probe",
	"cvv":            "credential_probe",
	"lottery":        "advance_fee",
	"prize":          "advance_fee",
	"processing fee": "advance_fee",
	"customs duty":   "advance_fee",
	"refund":         "advance_fee",
	"gift card":      "payment_instrument",
	"bitcoin":        "payment_instrument",
	"crypto wallet":  "payment_instrument",
	"anydesk":        "remote_access",
	"teamviewer":     "remote_access",
	"screen share":   "remote_access",
}

var reKeyword = buildKeywordRegexp()

func buildKeywordRegexp() *regexp.Regexp {
	words := make([]string, 0, len(keywordTable))
	for w := range keywordTable {
		words = append(words, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
}

type span struct{ start, end int }

func overlaps(claims []span, s span) bool {
	for _, c := range claims {
		if s.start < c.end && c.start < s.end {
			return true
		}
	}
	return false
}

// Scan extracts artifact candidates from message text. Specific
// patterns claim their spans first (payment handle, link, phone, bank
// account) so generic keyword matches never shadow them; overlapping or
// repeated sightings of the same normalized value are collapsed to one
// candidate per call. Malformed or empty input yields an empty result,
// never an error.
func Scan(text string) []Candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		claims []span
		out    []Candidate
		seen   = make(map[string]bool)
	)

	add := func(s span, c Candidate) {
		key := string(c.Type) + "|" + c.Normalized
		if overlaps(claims, s) || seen[key] {
			return
		}
		claims = append(claims, s)
		seen[key] = true
		out = append(out, c)
	}

	for _, m := range rePaymentHandle.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		if isEmailLike(text, m[1]) {
			continue
		}
		norm := strings.ToLower(raw)
		provider := norm[strings.LastIndex(norm, "@")+1:]
		add(span{m[0], m[1]}, Candidate{
			Type:       types.ArtifactPaymentHandle,
			Value:      raw,
			Normalized: norm,
			Method:     "regex",
			Confidence: 0.8,
			Context:    snippet(text, m[0], m[1]),
			Detail:     &types.PaymentHandleDetail{Handle: norm, Provider: provider},
		})
	}

	for _, m := range reLink.FindAllStringIndex(text, -1) {
		raw := strings.TrimRight(text[m[0]:m[1]], ".,;:!?)")
		norm := strings.ToLower(raw)
		scheme, host := splitURL(norm)
		add(span{m[0], m[0] + len(raw)}, Candidate{
			Type:       types.ArtifactPhishingLink,
			Value:      raw,
			Normalized: norm,
			Method:     "regex",
			Confidence: 0.8,
			Context:    snippet(text, m[0], m[1]),
			Detail:     &types.PhishingLinkDetail{Scheme: scheme, Host: host},
		})
	}

	for _, m := range rePhone.FindAllStringIndex(text, -1) {
		if m[0] > 0 && isDigit(text[m[0]-1]) {
			continue
		}
		raw := text[m[0]:m[1]]
		national := normalizePhone(raw)
		cc := ""
		if strings.Contains(raw, "91") && len(reDigits.FindAllString(raw, -1)) > 10 {
			cc = "+91"
		}
		add(span{m[0], m[1]}, Candidate{
			Type:       types.ArtifactPhoneNumber,
			Value:      raw,
			Normalized: national,
			Method:     "regex",
			Confidence: 0.7,
			Context:    snippet(text, m[0], m[1]),
			Detail:     &types.PhoneNumberDetail{CountryCode: cc, National: national},
		})
	}

	for _, m := range reBankAccount.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		ctx := snippet(text, m[0], m[1])
		detail := &types.BankAccountDetail{AccountNumber: raw}
		if ifsc := reIFSC.FindString(ctx); ifsc != "" {
			detail.IFSC = ifsc
		}
		add(span{m[0], m[1]}, Candidate{
			Type:       types.ArtifactBankAccount,
			Value:      raw,
			Normalized: raw,
			Method:     "regex",
			Confidence: 0.6,
			Context:    ctx,
			Detail:     detail,
		})
	}

	for _, m := range reKeyword.FindAllStringIndex(text, -1) {
		raw := text[m[0]:m[1]]
		norm := strings.ToLower(raw)
		add(span{m[0], m[1]}, Candidate{
			Type:       types.ArtifactKeyword,
			Value:      raw,
			Normalized: norm,
			Method:     "keyword",
			Confidence: 0.4,
			Context:    snippet(text, m[0], m[1]),
			Detail:     &types.KeywordDetail{Keyword: norm, Category: keywordTable[norm]},
		})
	}

	return out
}

// isEmailLike reports whether the handle match is really the front of
// an email address or domain, i.e. the text continues with ".tld".
func isEmailLike(text string, end int) bool {
	if end >= len(text) || text[end] != '.' {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[end+1:])
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func normalizePhone(raw string) string {
	digits := strings.Join(reDigits.FindAllString(raw, -1), "")
	if len(digits) > 10 {
		digits = digits[len(digits)-10:]
	}
	return digits
}

func splitURL(u string) (scheme, host string) {
	rest := u
	if i := strings.Index(u, "://"); i >= 0 {
		scheme = u[:i]
		rest = u[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return scheme, rest
}

const snippetRadius = 40

// snippet returns a bounded window of text around a match, clipped to
// rune boundaries.
func snippet(text string, start, end int) string {
	left := start
	for i := 0; i < snippetRadius && left > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:left])
		left -= size
	}
	right := end
	for i := 0; i < snippetRadius && right < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[right:])
		right += size
	}
	return strings.TrimSpace(text[left:right])
}
