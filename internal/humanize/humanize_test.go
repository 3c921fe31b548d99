// internal/humanize/humanize_test.go
package humanize

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
)

func testProfile(typoRate, truncateRate float64) *persona.Profile {
	return &persona.Profile{
		Delay:        persona.DelayEnvelope{MinSeconds: 20, MaxSeconds: 90},
		TypoRate:     typoRate,
		TruncateRate: truncateRate,
	}
}

func TestApplyDeterministic(t *testing.T) {
	profile := testProfile(0.5, 0.5)
	reply := "Arre beta, I am not understanding this phone banking business at all."

	text1, h1 := Apply(profile, "sess-1", 4, reply)
	text2, h2 := Apply(profile, "sess-1", 4, reply)

	if text1 != text2 {
		t.Errorf("text not deterministic: %q vs %q", text1, text2)
	}
	if *h1 != *h2 {
		t.Errorf("metadata not deterministic: %+v vs %+v", h1, h2)
	}
}

func TestApplyDelayWithinEnvelope(t *testing.T) {
	profile := testProfile(0, 0)

	for turn := 1; turn <= 50; turn++ {
		_, h := Apply(profile, "sess-delay", turn, "hello there")
		if h.DelaySeconds < profile.Delay.MinSeconds || h.DelaySeconds > profile.Delay.MaxSeconds {
			t.Fatalf("turn %d: delay %v outside [%v, %v]",
				turn, h.DelaySeconds, profile.Delay.MinSeconds, profile.Delay.MaxSeconds)
		}
	}
}

func TestApplyZeroRatesLeaveTextAlone(t *testing.T) {
	profile := testProfile(0, 0)
	reply := "I will ask my son about this tomorrow morning, he knows computers."

	text, h := Apply(profile, "sess-2", 1, reply)
	if text != reply {
		t.Errorf("expected unchanged text, got %q", text)
	}
	if h.TypoCount != 0 || h.Truncated {
		t.Errorf("expected clean metadata, got %+v", h)
	}
}

func TestApplyTypoInjection(t *testing.T) {
	profile := testProfile(1, 0)
	reply := "please tell me the account number again slowly"

	text, h := Apply(profile, "sess-3", 2, reply)
	if h.TypoCount < 1 || h.TypoCount > maxTypos {
		t.Fatalf("expected 1..%d typos, got %d", maxTypos, h.TypoCount)
	}
	if text == reply {
		t.Error("expected typos to change the text")
	}
	if utf8.RuneCountInString(text) != utf8.RuneCountInString(reply) {
		t.Error("adjacent-swap typos must preserve length")
	}
}

func TestApplyTruncation(t *testing.T) {
	profile := testProfile(0, 1)
	reply := "I am trying to open the application but it keeps asking me for some code that I never received on my phone"

	text, h := Apply(profile, "sess-4", 3, reply)
	if !h.Truncated {
		t.Fatal("expected truncation")
	}
	if len(text) >= len(reply) {
		t.Errorf("expected shorter text, got %d vs %d bytes", len(text), len(reply))
	}
	if !strings.HasPrefix(reply, text) {
		t.Errorf("truncated text %q is not a prefix of the original", text)
	}
}

func TestApplyShortMessageNeverTruncated(t *testing.T) {
	profile := testProfile(0, 1)
	reply := "ok one minute"

	text, h := Apply(profile, "sess-5", 1, reply)
	if h.Truncated {
		t.Error("short messages must not be truncated")
	}
	if text != reply {
		t.Errorf("expected unchanged text, got %q", text)
	}
}

func TestApplyVariesAcrossTurns(t *testing.T) {
	profile := testProfile(0, 0)

	delays := map[float64]bool{}
	for turn := 1; turn <= 20; turn++ {
		_, h := Apply(profile, "sess-6", turn, "hello")
		delays[h.DelaySeconds] = true
	}
	if len(delays) < 2 {
		t.Error("expected delays to vary across turns")
	}
}

func TestApplyEmptyReply(t *testing.T) {
	profile := testProfile(1, 1)

	text, h := Apply(profile, "sess-7", 1, "")
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
	if h.TypoCount != 0 || h.Truncated {
		t.Errorf("expected clean metadata for empty reply, got %+v", h)
	}
	if h.DelaySeconds < profile.Delay.MinSeconds {
		t.Error("delay still applies to empty replies")
	}
}
