package persona

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

func TestRegistryDefaults(t *testing.T) {
	r := NewRegistry(nil)

	for _, name := range []types.Persona{types.PersonaElderlyUncle, types.PersonaBusyProfessional} {
		p, err := r.Get(name)
		if err != nil {
			t.Fatalf("default persona %s missing: %v", name, err)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("default persona %s invalid: %v", name, err)
		}
	}

	if _, err := r.Get("NOBODY"); err == nil {
		t.Error("expected error for unknown persona")
	}
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	content := `
name: ELDERLY_UNCLE
language: en
locale: IN
initial_confidence: 0.4
drift_rate: 0.2
tone_seed:
  confusion: 0.5
  anxiety: 0.3
  urgency: 0.2
  compliance: 0.5
  cognitive_load: 0.6
thresholds:
  interest: 0.5
  extraction_ready: 0.75
  soft_exposure: 0.6
  hard_exposure: 0.85
  scam_detected: 0.6
artifact_quota: 4
turn_budget: 25
delay:
  min_seconds: 10
  max_seconds: 60
typo_rate: 0.1
truncate_rate: 0.05
prompt: "You are a retired teacher."
`
	if err := os.WriteFile(filepath.Join(dir, "uncle.yaml"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(nil)
	if err := r.LoadDir(dir); err != nil {
		t.Fatal(err)
	}

	p, err := r.Get(types.PersonaElderlyUncle)
	if err != nil {
		t.Fatal(err)
	}
	if p.DriftRate != 0.2 {
		t.Errorf("expected overlay drift_rate 0.2, got %v", p.DriftRate)
	}
	if p.ArtifactQuota != 4 {
		t.Errorf("expected overlay artifact_quota 4, got %v", p.ArtifactQuota)
	}
}

func TestRegistryLoadDirMissing(t *testing.T) {
	r := NewRegistry(nil)
	if err := r.LoadDir(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("missing dir should not error, got %v", err)
	}
}

func TestRegistryRejectsInvalidProfile(t *testing.T) {
	dir := t.TempDir()
	bad := `
name: ELDERLY_UNCLE
drift_rate: 1.5
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(nil)
	if err := r.LoadDir(dir); err == nil {
		t.Fatal("expected error for out-of-range drift_rate")
	}

	// Defaults must survive a rejected overlay.
	p, err := r.Get(types.PersonaElderlyUncle)
	if err != nil {
		t.Fatal(err)
	}
	if p.DriftRate != 0.15 {
		t.Errorf("default profile should be untouched, got drift_rate %v", p.DriftRate)
	}
}

func TestProfileValidate(t *testing.T) {
	base := defaultProfiles()[0]

	cases := []struct {
		name   string
		mutate func(*Profile)
	}{
		{"zero drift", func(p *Profile) { p.DriftRate = 0 }},
		{"drift above one", func(p *Profile) { p.DriftRate = 1.01 }},
		{"negative confidence", func(p *Profile) { p.InitialConfidence = -0.1 }},
		{"zero quota", func(p *Profile) { p.ArtifactQuota = 0 }},
		{"zero budget", func(p *Profile) { p.TurnBudget = 0 }},
		{"inverted delay", func(p *Profile) { p.Delay = DelayEnvelope{MinSeconds: 30, MaxSeconds: 10} }},
		{"inverted thresholds", func(p *Profile) { p.Thresholds.Interest = 0.9 }},
		{"soft above hard", func(p *Profile) { p.Thresholds.SoftExposure = 0.9 }},
		{"tone out of range", func(p *Profile) { p.ToneSeed.Anxiety = 1.2 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cp := *base
			tc.mutate(&cp)
			if err := cp.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}

	if err := base.Validate(); err != nil {
		t.Errorf("default profile should validate, got %v", err)
	}
}
