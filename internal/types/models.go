// internal/types/models.go
package types

import (
	"encoding/json"
	"math"
	"time"
)

// ToneVector is the agent's displayed affect. Every component stays in
// [0,1]; per-turn movement is bounded by the persona drift rate.
type ToneVector struct {
	Confusion     float64 `json:"confusion"`
	Anxiety       float64 `json:"anxiety"`
	Urgency       float64 `json:"urgency"`
	Compliance    float64 `json:"compliance"`
	CognitiveLoad float64 `json:"cognitive_load"`
}

func (t ToneVector) Components() [5]float64 {
	return [5]float64{t.Confusion, t.Anxiety, t.Urgency, t.Compliance, t.CognitiveLoad}
}

// MaxAbsDelta returns the largest per-component change between two vectors.
func (t ToneVector) MaxAbsDelta(o ToneVector) float64 {
	a, b := t.Components(), o.Components()
	var max float64
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}

type Session struct {
	ID                SessionID     `json:"id"`
	Key               SessionKey    `json:"key"`
	Channel           Channel       `json:"channel"`
	Language          string        `json:"language"`
	Locale            string        `json:"locale"`
	Persona           Persona       `json:"persona"`
	InitialConfidence float64       `json:"initial_confidence"`
	Status            SessionStatus `json:"status"`
	Phase             Phase         `json:"phase"`
	ScamDetected      bool          `json:"scam_detected"`
	Confidence        float64       `json:"confidence"`
	ExposureRisk      float64       `json:"exposure_risk"`
	Tone              ToneVector    `json:"tone"`
	Initiative        float64       `json:"initiative"`
	TurnsInPhase      int           `json:"turns_in_phase"`
	StagnantTurns     int           `json:"stagnant_turns"`
	LastTurn          int           `json:"last_turn"`
	TotalMessages     int           `json:"total_messages"`
	IntelligenceCount int           `json:"intelligence_count"`
	TacticCount       int           `json:"tactic_count"`
	EngagementSeconds int64         `json:"engagement_seconds"`
	CallbackSent      bool          `json:"callback_sent"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
	CompletedAt       *time.Time    `json:"completed_at,omitempty"`
}

// Message is one utterance. Turn is the sole ordering key; timestamps
// are informational. Agent messages additionally carry the
// pre-humanization text and the humanization metadata used.
type Message struct {
	ID           MessageID     `json:"id"`
	SessionID    SessionID     `json:"session_id"`
	Turn         int           `json:"turn"`
	Sender       Sender        `json:"sender"`
	Text         string        `json:"text"`
	RawText      string        `json:"raw_text,omitempty"`
	Humanization *Humanization `json:"humanization,omitempty"`
	Phase        Phase         `json:"phase"`
	Confidence   float64       `json:"confidence"`
	ExposureRisk float64       `json:"exposure_risk"`
	At           time.Time     `json:"at"`
}

// Humanization is the effects metadata attached to an agent message by
// the humanizer and consumed by the exposure monitor's pace penalty.
type Humanization struct {
	DelaySeconds float64 `json:"delay_seconds"`
	TypoCount    int     `json:"typo_count"`
	Truncated    bool    `json:"truncated"`
}

// StateEvolution is the per-turn audit record of an engine decision.
// Append-only; never mutated after write.
type StateEvolution struct {
	ID              int64      `json:"id"`
	SessionID       SessionID  `json:"session_id"`
	MessageID       MessageID  `json:"message_id"`
	Turn            int        `json:"turn"`
	PreviousPhase   Phase      `json:"previous_phase"`
	Phase           Phase      `json:"phase"`
	Transitioned    bool       `json:"transitioned"`
	TurnsInPhase    int        `json:"turns_in_phase"`
	PrevConfidence  float64    `json:"previous_confidence"`
	Confidence      float64    `json:"confidence"`
	ConfidenceDelta float64    `json:"confidence_delta"`
	Trend           Trend      `json:"trend"`
	ExposureRisk    float64    `json:"exposure_risk"`
	ExposureDelta   float64    `json:"exposure_delta"`
	Tone            ToneVector `json:"tone"`
	DriftRate       float64    `json:"drift_rate"`
	Initiative      float64    `json:"initiative"`
	Signals         []string   `json:"signals"`
	At              time.Time  `json:"at"`
}

// Artifact is a deduplicated intelligence item. Unique per
// (session, type, normalized value); re-detection bumps the
// confirmation metadata instead of inserting a second row.
type Artifact struct {
	ID            ArtifactID     `json:"id"`
	SessionID     SessionID      `json:"session_id"`
	Type          ArtifactType   `json:"type"`
	Value         string         `json:"value"`
	Normalized    string         `json:"normalized"`
	MessageID     MessageID      `json:"message_id"`
	Turn          int            `json:"turn"`
	Method        string         `json:"method"`
	Confirmed     bool           `json:"confirmed"`
	Confirmations int            `json:"confirmation_count"`
	Confidence    float64        `json:"confidence"`
	Context       string         `json:"context,omitempty"`
	Detail        ArtifactDetail `json:"detail,omitempty"`
	FirstSeen     time.Time      `json:"first_seen"`
	LastSeen      time.Time      `json:"last_seen"`
}

type TacticEvent struct {
	ID          int64       `json:"id"`
	SessionID   SessionID   `json:"session_id"`
	Turn        int         `json:"turn"`
	Type        TacticType  `json:"type"`
	Description string      `json:"description"`
	MessageText string      `json:"message_text"`
	Keywords    []string    `json:"keywords"`
	ThreatLevel ThreatLevel `json:"threat_level"`
	At          time.Time   `json:"at"`
}

// Evaluation is the post-session quality summary, a pure fold over the
// session's persisted records.
type Evaluation struct {
	SessionID              SessionID `json:"session_id"`
	EngagementDepth        float64   `json:"engagement_depth_score"`
	Naturalness            float64   `json:"conversation_naturalness_score"`
	ExtractionEfficiency   float64   `json:"extraction_efficiency"`
	DetectionConfidence    float64   `json:"scam_detection_confidence"`
	FalsePositiveRisk      float64   `json:"false_positive_risk"`
	AvgResponseDelay       float64   `json:"average_response_delay"`
	ToneDriftSmoothness    float64   `json:"tone_drift_smoothness"`
	TransitionCount        int       `json:"state_transition_count"`
	PrematureExits         int       `json:"premature_exits"`
	UniqueArtifacts        int       `json:"unique_artifacts_extracted"`
	ConfirmedArtifacts     int       `json:"confirmed_artifacts_extracted"`
	HighConfidence         int       `json:"high_confidence_artifacts"`
	TypoCount              int       `json:"typo_count"`
	Truncations            int       `json:"message_truncations"`
	Repetitions            int       `json:"repetitions"`
	ClarificationQuestions int       `json:"clarification_questions_asked"`
	OverallQuality         float64   `json:"overall_quality_score"`
	CalculatedAt           time.Time `json:"calculated_at"`
}

// InboundMessage is a raw turn submission before the session is
// resolved. Turn is optional: zero means "next"; a non-zero value must
// be exactly one past the session's last recorded turn or the
// submission is rejected.
type InboundMessage struct {
	SessionKey SessionKey      `json:"session_key"`
	Channel    Channel         `json:"channel"`
	Persona    Persona         `json:"persona,omitempty"`
	Language   string          `json:"language,omitempty"`
	Locale     string          `json:"locale,omitempty"`
	Sender     Sender          `json:"sender"`
	Text       string          `json:"text"`
	Turn       int             `json:"turn,omitempty"`
	At         time.Time       `json:"at"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// Decision is the bundle the engine emits once per turn. It conditions
// the response generator, is persisted as a StateEvolution, and drives
// the callback notifier.
type Decision struct {
	SessionID       SessionID      `json:"session_id"`
	Turn            int            `json:"turn"`
	PreviousPhase   Phase          `json:"previous_phase"`
	Phase           Phase          `json:"phase"`
	Transitioned    bool           `json:"transitioned"`
	TurnsInPhase    int            `json:"turns_in_phase"`
	Status          SessionStatus  `json:"status"`
	Confidence      float64        `json:"confidence"`
	ConfidenceDelta float64        `json:"confidence_delta"`
	Trend           Trend          `json:"trend"`
	ExposureRisk    float64        `json:"exposure_risk"`
	ExposureDelta   float64        `json:"exposure_delta"`
	Tone            ToneVector     `json:"tone"`
	DriftRate       float64        `json:"drift_rate"`
	Initiative      float64        `json:"initiative"`
	Signals         []string       `json:"signals"`
	Artifacts       []*Artifact    `json:"artifacts"`
	Tactics         []*TacticEvent `json:"tactics"`
	ScamDetected    bool           `json:"scam_detected"`
	ShouldContinue  bool           `json:"should_continue"`
}

// ResponderView is the slice of a decision the response generator may
// see. Initiative is deliberately absent.
type ResponderView struct {
	Phase        Phase        `json:"phase"`
	Confidence   float64      `json:"confidence"`
	ExposureRisk float64      `json:"exposure_risk"`
	Tone         ToneVector   `json:"tone"`
	Tactics      []TacticType `json:"tactics"`
}

func (d *Decision) ResponderView() ResponderView {
	v := ResponderView{
		Phase:        d.Phase,
		Confidence:   d.Confidence,
		ExposureRisk: d.ExposureRisk,
		Tone:         d.Tone,
	}
	for _, t := range d.Tactics {
		v.Tactics = append(v.Tactics, t.Type)
	}
	return v
}
