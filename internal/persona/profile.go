// internal/persona/profile.go
package persona

import (
	"fmt"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// Profile is the immutable per-persona configuration: numeric engine
// parameters plus the prompt text handed to the response generator.
// Loaded from YAML; every numeric field is range-checked before use.
type Profile struct {
	Name              types.Persona `yaml:"name"`
	Language          string        `yaml:"language"`
	Locale            string        `yaml:"locale"`
	InitialConfidence float64       `yaml:"initial_confidence"`
	DriftRate         float64       `yaml:"drift_rate"`
	ToneSeed          ToneSeed      `yaml:"tone_seed"`
	Thresholds        Thresholds    `yaml:"thresholds"`
	ArtifactQuota     int           `yaml:"artifact_quota"`
	TurnBudget        int           `yaml:"turn_budget"`
	Delay             DelayEnvelope `yaml:"delay"`
	TypoRate          float64       `yaml:"typo_rate"`
	TruncateRate      float64       `yaml:"truncate_rate"`
	Prompt            string        `yaml:"prompt"`
}

type ToneSeed struct {
	Confusion     float64 `yaml:"confusion"`
	Anxiety       float64 `yaml:"anxiety"`
	Urgency       float64 `yaml:"urgency"`
	Compliance    float64 `yaml:"compliance"`
	CognitiveLoad float64 `yaml:"cognitive_load"`
}

func (s ToneSeed) Vector() types.ToneVector {
	return types.ToneVector{
		Confusion:     s.Confusion,
		Anxiety:       s.Anxiety,
		Urgency:       s.Urgency,
		Compliance:    s.Compliance,
		CognitiveLoad: s.CognitiveLoad,
	}
}

type Thresholds struct {
	Interest        float64 `yaml:"interest"`
	ExtractionReady float64 `yaml:"extraction_ready"`
	SoftExposure    float64 `yaml:"soft_exposure"`
	HardExposure    float64 `yaml:"hard_exposure"`
	ScamDetected    float64 `yaml:"scam_detected"`
}

// DelayEnvelope is the plausible response-delay range for the persona.
// Replies faster than Min or slower than Max feed the exposure
// monitor's pace penalty.
type DelayEnvelope struct {
	MinSeconds float64 `yaml:"min_seconds"`
	MaxSeconds float64 `yaml:"max_seconds"`
}

func inUnit(v float64) bool     { return v >= 0 && v <= 1 }
func inUnitOpen(v float64) bool { return v > 0 && v <= 1 }

// Validate rejects out-of-range parameters. A session referencing an
// invalid profile fails at creation, per-session only.
func (p *Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile missing name")
	}
	if !inUnitOpen(p.DriftRate) {
		return fmt.Errorf("profile %s: drift_rate %v outside (0,1]", p.Name, p.DriftRate)
	}
	if !inUnit(p.InitialConfidence) {
		return fmt.Errorf("profile %s: initial_confidence %v outside [0,1]", p.Name, p.InitialConfidence)
	}
	for _, th := range []struct {
		name string
		v    float64
	}{
		{"interest", p.Thresholds.Interest},
		{"extraction_ready", p.Thresholds.ExtractionReady},
		{"soft_exposure", p.Thresholds.SoftExposure},
		{"hard_exposure", p.Thresholds.HardExposure},
		{"scam_detected", p.Thresholds.ScamDetected},
	} {
		if !inUnitOpen(th.v) {
			return fmt.Errorf("profile %s: threshold %s %v outside (0,1]", p.Name, th.name, th.v)
		}
	}
	if p.Thresholds.Interest > p.Thresholds.ExtractionReady {
		return fmt.Errorf("profile %s: interest threshold above extraction_ready", p.Name)
	}
	if p.Thresholds.SoftExposure > p.Thresholds.HardExposure {
		return fmt.Errorf("profile %s: soft_exposure threshold above hard_exposure", p.Name)
	}
	if p.ArtifactQuota < 1 {
		return fmt.Errorf("profile %s: artifact_quota must be positive", p.Name)
	}
	if p.TurnBudget < 1 {
		return fmt.Errorf("profile %s: turn_budget must be positive", p.Name)
	}
	if p.Delay.MinSeconds < 0 || p.Delay.MaxSeconds < p.Delay.MinSeconds {
		return fmt.Errorf("profile %s: invalid delay envelope [%v, %v]", p.Name, p.Delay.MinSeconds, p.Delay.MaxSeconds)
	}
	if !inUnit(p.TypoRate) || !inUnit(p.TruncateRate) {
		return fmt.Errorf("profile %s: typo_rate and truncate_rate must be within [0,1]", p.Name)
	}
	for _, c := range p.ToneSeed.Vector().Components() {
		if !inUnit(c) {
			return fmt.Errorf("profile %s: tone_seed component %v outside [0,1]", p.Name, c)
		}
	}
	return nil
}

func defaultProfiles() []*Profile {
	return []*Profile{
		{
			Name:              types.PersonaElderlyUncle,
			Language:          "en",
			Locale:            "IN",
			InitialConfidence: 0.35,
			DriftRate:         0.15,
			ToneSeed: ToneSeed{
				Confusion:     0.4,
				Anxiety:       0.3,
				Urgency:       0.2,
				Compliance:    0.5,
				CognitiveLoad: 0.6,
			},
			Thresholds: Thresholds{
				Interest:        0.5,
				ExtractionReady: 0.75,
				SoftExposure:    0.6,
				HardExposure:    0.85,
				ScamDetected:    0.6,
			},
			ArtifactQuota: 3,
			TurnBudget:    30,
			Delay:         DelayEnvelope{MinSeconds: 20, MaxSeconds: 90},
			TypoRate:      0.15,
			TruncateRate:  0.05,
			Prompt: "You are Ramesh, a 67-year-old retired school teacher in Pune. " +
				"You are not comfortable with smartphones and often ask people to repeat " +
				"instructions. You are polite, a little anxious about money, and you trust " +
				"people who sound official. You never realise you are talking to a scammer. " +
				"Reply in one or two short sentences. Ask for clarification often.",
		},
		{
			Name:              types.PersonaBusyProfessional,
			Language:          "en",
			Locale:            "IN",
			InitialConfidence: 0.3,
			DriftRate:         0.25,
			ToneSeed: ToneSeed{
				Confusion:     0.15,
				Anxiety:       0.2,
				Urgency:       0.35,
				Compliance:    0.35,
				CognitiveLoad: 0.3,
			},
			Thresholds: Thresholds{
				Interest:        0.5,
				ExtractionReady: 0.75,
				SoftExposure:    0.6,
				HardExposure:    0.85,
				ScamDetected:    0.6,
			},
			ArtifactQuota: 3,
			TurnBudget:    30,
			Delay:         DelayEnvelope{MinSeconds: 5, MaxSeconds: 30},
			TypoRate:      0.05,
			TruncateRate:  0.1,
			Prompt: "You are Priya, a 34-year-old marketing manager in Bengaluru. " +
				"You answer messages in a rush between meetings, in short clipped replies. " +
				"You are mildly annoyed at interruptions but worried about anything touching " +
				"your bank account. You never realise you are talking to a scammer. " +
				"Keep replies under two sentences.",
		},
	}
}
