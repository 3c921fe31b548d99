// internal/types/enums.go
package types

type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WhatsApp"
	ChannelEmail    Channel = "Email"
	ChannelChat     Channel = "Chat"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelChat:
		return true
	}
	return false
}

type SessionStatus string

const (
	StatusActive     SessionStatus = "active"
	StatusCompleted  SessionStatus = "completed"
	StatusTerminated SessionStatus = "terminated"
	StatusBurned     SessionStatus = "burned"
)

// Terminal reports whether the session accepts no further turns.
func (s SessionStatus) Terminal() bool {
	return s != StatusActive
}

// Phase is the session's position in the conversation lifecycle.
// Phases move forward only, in the order below; TERMINATED is the
// out-of-band absorbing outcome.
type Phase string

const (
	PhaseUnknown    Phase = "UNKNOWN"
	PhaseProbing    Phase = "PROBING"
	PhaseEngaging   Phase = "ENGAGING"
	PhaseDraining   Phase = "DRAINING"
	PhaseExiting    Phase = "EXITING"
	PhaseTerminated Phase = "TERMINATED"
)

var phaseOrder = map[Phase]int{
	PhaseUnknown:    0,
	PhaseProbing:    1,
	PhaseEngaging:   2,
	PhaseDraining:   3,
	PhaseExiting:    4,
	PhaseTerminated: 5,
}

// Order returns the phase's position in the forward progression.
// Unknown phases order as -1.
func (p Phase) Order() int {
	if o, ok := phaseOrder[p]; ok {
		return o
	}
	return -1
}

func (p Phase) Valid() bool {
	_, ok := phaseOrder[p]
	return ok
}

// Terminal reports whether the phase ends the conversation.
func (p Phase) Terminal() bool {
	return p == PhaseExiting || p == PhaseTerminated
}

type Persona string

const (
	PersonaElderlyUncle     Persona = "ELDERLY_UNCLE"
	PersonaBusyProfessional Persona = "BUSY_PROFESSIONAL"
)

type Sender string

const (
	SenderScammer Sender = "scammer"
	SenderAgent   Sender = "agent"
)

type ArtifactType string

const (
	ArtifactPaymentHandle ArtifactType = "payment_handle"
	ArtifactBankAccount   ArtifactType = "bank_account"
	ArtifactPhoneNumber   ArtifactType = "phone_number"
	ArtifactPhishingLink  ArtifactType = "phishing_link"
	ArtifactKeyword       ArtifactType = "keyword"
)

type TacticType string

const (
	TacticUrgencyPressure  TacticType = "urgency_pressure"
	TacticAuthorityClaim   TacticType = "authority_claim"
	TacticPaymentRedirect  TacticType = "payment_redirect"
	TacticAccountThreat    TacticType = "account_threat"
	TacticVerificationScam TacticType = "verification_scam"
)

type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "low"
	ThreatMedium ThreatLevel = "medium"
	ThreatHigh   ThreatLevel = "high"
)

type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)
