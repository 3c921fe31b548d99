// internal/engine/machine.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/extract"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/tactics"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

type Stores struct {
	Sessions  types.SessionStore
	Messages  types.MessageStore
	Evolution types.EvolutionStore
	Artifacts types.ArtifactStore
	Tactics   types.TacticStore
}

// Machine is the per-turn decision engine. It owns every mutation of
// session state: callers submit inbound messages and receive the
// decision bundle; the append-only StateEvolution trail and the session
// counters are written here and nowhere else.
//
// The machine holds no state between calls. Everything up to the
// persist step is a pure function of the stored prior turn plus the
// inbound message, so retrying a failed turn is safe as long as nothing
// was persisted.
type Machine struct {
	stores   Stores
	personas *persona.Registry
	logger   *slog.Logger
}

func NewMachine(stores Stores, personas *persona.Registry, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{stores: stores, personas: personas, logger: logger}
}

// ProcessTurn runs one engine turn: scan and classify the scammer
// message, update confidence, tone and exposure from the prior
// persisted state, decide the phase, then persist the message, the
// artifact sightings, the tactic events, the evolution record and the
// session counters, in that order.
//
// Turns for one session must arrive serialized; the caller owns that
// guarantee (see gateway).
func (m *Machine) ProcessTurn(ctx context.Context, in *types.InboundMessage) (*types.Decision, error) {
	if in.Sender != types.SenderScammer {
		return nil, fmt.Errorf("only scammer messages advance a session, got sender %q", in.Sender)
	}

	session, profile, err := m.resolveSession(ctx, in)
	if err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, fmt.Errorf("session %s status %s: %w", session.ID, session.Status, types.ErrSessionClosed)
	}

	turn := in.Turn
	if turn == 0 {
		turn = session.LastTurn + 1
	} else if turn != session.LastTurn+1 {
		return nil, fmt.Errorf("session %s: turn %d after turn %d: %w",
			session.ID, turn, session.LastTurn, types.ErrTurnOrder)
	}

	now := time.Now().UTC()
	at := in.At
	if at.IsZero() {
		at = now
	}

	// Pure stages. Email bodies are flattened before scanning.
	text := in.Text
	if session.Channel == types.ChannelEmail {
		text = extract.NormalizeHTML(text)
	}
	candidates := extract.Scan(text)
	detections := tactics.Classify(text, turn)

	// Project artifact dedup state from a read, not a write, so the
	// computation stays retry-safe until the persist step below.
	existing, err := m.stores.Artifacts.List(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("load artifacts: %w", err)
	}
	msgID := types.NewMessageID()
	sighted := projectArtifacts(existing, candidates, session.ID, msgID, turn, at)
	signals := Signals{Tactics: detections, Artifacts: sighted}

	agentHistory, err := m.stores.Messages.RecentBySender(ctx, session.ID, types.SenderAgent, repetitionWindow+1)
	if err != nil {
		return nil, fmt.Errorf("load agent history: %w", err)
	}

	// Scoring: confidence, then tone, then exposure. Each consumes the
	// previous stage's output; the order is part of the contract.
	conf, confDelta, trend := updateConfidence(session.Confidence, profile.InitialConfidence, profile.DriftRate, signals)
	tone := updateTone(session.Tone, session.Initiative, profile.ToneSeed.Vector(), profile.DriftRate, signals, turn, session.ExposureRisk)

	stagnant := session.StagnantTurns + 1
	if !signals.Empty() {
		stagnant = 0
	}
	risk, riskDelta := updateExposure(session.ExposureRisk, agentHistory, profile.Delay, stagnant)

	confirmed := countConfirmed(existing, sighted)
	phase, status, forced := nextPhase(session, profile, conf, risk, confirmed, turn, signals)
	transitioned := phase != session.Phase
	turnsInPhase := session.TurnsInPhase + 1
	if transitioned {
		turnsInPhase = 1
		stagnant = 0
	}

	scamDetected := session.ScamDetected || conf >= profile.Thresholds.ScamDetected

	decision := &types.Decision{
		SessionID:       session.ID,
		Turn:            turn,
		PreviousPhase:   session.Phase,
		Phase:           phase,
		Transitioned:    transitioned,
		TurnsInPhase:    turnsInPhase,
		Status:          status,
		Confidence:      conf,
		ConfidenceDelta: confDelta,
		Trend:           trend,
		ExposureRisk:    risk,
		ExposureDelta:   riskDelta,
		Tone:            tone.Tone,
		DriftRate:       tone.EffectiveDrift,
		Initiative:      tone.Initiative,
		Signals:         signals.IDs(),
		Artifacts:       sighted,
		Tactics:         tacticEvents(session.ID, detections, text, at),
		ScamDetected:    scamDetected,
		ShouldContinue:  status == types.StatusActive && !phase.Terminal(),
	}

	if err := m.persistTurn(ctx, session, decision, msgID, text, stagnant, at, now); err != nil {
		return nil, err
	}

	if forced {
		m.logger.Warn("exposure hard threshold tripped, session burned",
			"session_id", session.ID, "turn", turn, "exposure_risk", risk)
	} else if transitioned {
		m.logger.Info("phase transition",
			"session_id", session.ID, "turn", turn,
			"from", decision.PreviousPhase, "to", phase, "confidence", conf)
	}

	return decision, nil
}

func (m *Machine) resolveSession(ctx context.Context, in *types.InboundMessage) (*types.Session, *persona.Profile, error) {
	session, err := m.stores.Sessions.GetByKey(ctx, in.SessionKey)
	if err == nil {
		profile, perr := m.personas.Get(session.Persona)
		if perr != nil {
			return nil, nil, fmt.Errorf("session %s: %w", session.ID, perr)
		}
		return session, profile, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		return nil, nil, fmt.Errorf("resolve session: %w", err)
	}

	name := in.Persona
	if name == "" {
		name = types.PersonaElderlyUncle
	}
	profile, err := m.personas.Get(name)
	if err != nil {
		return nil, nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, nil, fmt.Errorf("session rejected: %w", err)
	}

	channel := in.Channel
	if !channel.Valid() {
		channel = types.ChannelSMS
	}
	language := in.Language
	if language == "" {
		language = profile.Language
	}
	locale := in.Locale
	if locale == "" {
		locale = profile.Locale
	}

	now := time.Now().UTC()
	session = &types.Session{
		ID:                types.NewSessionID(),
		Key:               in.SessionKey,
		Channel:           channel,
		Language:          language,
		Locale:            locale,
		Persona:           name,
		InitialConfidence: profile.InitialConfidence,
		Status:            types.StatusActive,
		Phase:             types.PhaseUnknown,
		Confidence:        profile.InitialConfidence,
		Tone:              profile.ToneSeed.Vector(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.stores.Sessions.Create(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	m.logger.Info("session created",
		"session_id", session.ID, "key", session.Key,
		"persona", session.Persona, "channel", session.Channel)
	return session, profile, nil
}

// nextPhase applies the transition rule. The exposure hard threshold
// overrides everything; otherwise only the current phase's own rule is
// consulted, so a turn never advances more than one phase. Phases never
// move backward.
func nextPhase(s *types.Session, p *persona.Profile, conf, risk float64, confirmed, turn int, sig Signals) (types.Phase, types.SessionStatus, bool) {
	if risk >= p.Thresholds.HardExposure {
		return types.PhaseExiting, types.StatusBurned, true
	}

	phase, status := s.Phase, s.Status
	switch s.Phase {
	case types.PhaseUnknown:
		phase = types.PhaseProbing
	case types.PhaseProbing:
		observed := s.IntelligenceCount > 0 || s.TacticCount > 0 || !sig.Empty()
		if conf >= p.Thresholds.Interest && observed {
			phase = types.PhaseEngaging
		}
	case types.PhaseEngaging:
		if conf >= p.Thresholds.ExtractionReady {
			phase = types.PhaseDraining
		}
	case types.PhaseDraining:
		if confirmed >= p.ArtifactQuota || risk >= p.Thresholds.SoftExposure || turn >= p.TurnBudget {
			phase = types.PhaseExiting
			status = types.StatusCompleted
		}
	}

	// Exhausted turn budget ends the session from any phase.
	if phase != types.PhaseExiting && turn >= p.TurnBudget {
		phase = types.PhaseExiting
		status = types.StatusCompleted
	}
	return phase, status, false
}

func (m *Machine) persistTurn(ctx context.Context, session *types.Session, d *types.Decision, msgID types.MessageID, text string, stagnant int, at, now time.Time) error {
	msg := &types.Message{
		ID:           msgID,
		SessionID:    session.ID,
		Turn:         d.Turn,
		Sender:       types.SenderScammer,
		Text:         text,
		Phase:        d.Phase,
		Confidence:   d.Confidence,
		ExposureRisk: d.ExposureRisk,
		At:           at,
	}
	if err := m.stores.Messages.Append(ctx, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	for i, a := range d.Artifacts {
		merged, err := m.stores.Artifacts.Upsert(ctx, a)
		if err != nil {
			return fmt.Errorf("upsert artifact %s: %w", a.Normalized, err)
		}
		d.Artifacts[i] = merged
	}

	for _, ev := range d.Tactics {
		if err := m.stores.Tactics.Append(ctx, ev); err != nil {
			return fmt.Errorf("append tactic: %w", err)
		}
	}

	rec := &types.StateEvolution{
		SessionID:       session.ID,
		MessageID:       msgID,
		Turn:            d.Turn,
		PreviousPhase:   d.PreviousPhase,
		Phase:           d.Phase,
		Transitioned:    d.Transitioned,
		TurnsInPhase:    d.TurnsInPhase,
		PrevConfidence:  session.Confidence,
		Confidence:      d.Confidence,
		ConfidenceDelta: d.ConfidenceDelta,
		Trend:           d.Trend,
		ExposureRisk:    d.ExposureRisk,
		ExposureDelta:   d.ExposureDelta,
		Tone:            d.Tone,
		DriftRate:       d.DriftRate,
		Initiative:      d.Initiative,
		Signals:         d.Signals,
		At:              now,
	}
	if err := m.stores.Evolution.Append(ctx, rec); err != nil {
		return fmt.Errorf("append evolution: %w", err)
	}

	newArtifacts := 0
	for _, a := range d.Artifacts {
		if a.Confirmations <= 1 {
			newArtifacts++
		}
	}

	session.Phase = d.Phase
	session.Status = d.Status
	session.Confidence = d.Confidence
	session.ExposureRisk = d.ExposureRisk
	session.Tone = d.Tone
	session.Initiative = d.Initiative
	session.TurnsInPhase = d.TurnsInPhase
	session.LastTurn = d.Turn
	session.TotalMessages++
	session.IntelligenceCount += newArtifacts
	session.TacticCount += len(d.Tactics)
	session.ScamDetected = d.ScamDetected
	session.StagnantTurns = stagnant
	session.UpdatedAt = now
	if d.Status.Terminal() {
		session.CompletedAt = &now
		session.EngagementSeconds = int64(now.Sub(session.CreatedAt).Seconds())
	}
	if err := m.stores.Sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// RecordAgentReply persists the agent's outbound message for a turn,
// keeping the controller the sole writer of session counters. The raw
// pre-humanization text rides along for the audit trail.
func (m *Machine) RecordAgentReply(ctx context.Context, sessionID types.SessionID, turn int, raw, final string, h *types.Humanization) (*types.Message, error) {
	session, err := m.stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if turn != session.LastTurn {
		return nil, fmt.Errorf("agent reply for turn %d, session at turn %d: %w",
			turn, session.LastTurn, types.ErrTurnOrder)
	}

	now := time.Now().UTC()
	msg := &types.Message{
		ID:           types.NewMessageID(),
		SessionID:    sessionID,
		Turn:         turn,
		Sender:       types.SenderAgent,
		Text:         final,
		RawText:      raw,
		Humanization: h,
		Phase:        session.Phase,
		Confidence:   session.Confidence,
		ExposureRisk: session.ExposureRisk,
		At:           now,
	}
	if err := m.stores.Messages.Append(ctx, msg); err != nil {
		return nil, fmt.Errorf("append agent message: %w", err)
	}

	session.TotalMessages++
	session.UpdatedAt = now
	if err := m.stores.Sessions.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return msg, nil
}

// Abort ends a session at a turn boundary (operator kill). The last
// persisted evolution record stays the source of truth; no partial
// turn is written.
func (m *Machine) Abort(ctx context.Context, id types.SessionID) error {
	session, err := m.stores.Sessions.Get(ctx, id)
	if err != nil {
		return err
	}
	if session.Status.Terminal() {
		return fmt.Errorf("session %s already %s: %w", id, session.Status, types.ErrSessionClosed)
	}

	now := time.Now().UTC()
	session.Phase = types.PhaseTerminated
	session.Status = types.StatusTerminated
	session.UpdatedAt = now
	session.CompletedAt = &now
	session.EngagementSeconds = int64(now.Sub(session.CreatedAt).Seconds())
	if err := m.stores.Sessions.Update(ctx, session); err != nil {
		return fmt.Errorf("abort session: %w", err)
	}
	m.logger.Info("session aborted", "session_id", id)
	return nil
}

func projectArtifacts(existing []*types.Artifact, cands []extract.Candidate, sessionID types.SessionID, msgID types.MessageID, turn int, at time.Time) []*types.Artifact {
	index := make(map[string]*types.Artifact, len(existing))
	for _, a := range existing {
		index[string(a.Type)+"|"+a.Normalized] = a
	}

	out := make([]*types.Artifact, 0, len(cands))
	for _, c := range cands {
		if prev, ok := index[string(c.Type)+"|"+c.Normalized]; ok {
			cp := *prev
			cp.Confirmations = prev.Confirmations + 1
			cp.Confirmed = true
			cp.LastSeen = at
			out = append(out, &cp)
			continue
		}
		out = append(out, &types.Artifact{
			ID:            types.NewArtifactID(),
			SessionID:     sessionID,
			Type:          c.Type,
			Value:         c.Value,
			Normalized:    c.Normalized,
			MessageID:     msgID,
			Turn:          turn,
			Method:        c.Method,
			Confirmations: 1,
			Confidence:    c.Confidence,
			Context:       c.Context,
			Detail:        c.Detail,
			FirstSeen:     at,
			LastSeen:      at,
		})
	}
	return out
}

func countConfirmed(existing, sighted []*types.Artifact) int {
	merged := make(map[string]*types.Artifact, len(existing)+len(sighted))
	for _, a := range existing {
		merged[string(a.Type)+"|"+a.Normalized] = a
	}
	for _, a := range sighted {
		merged[string(a.Type)+"|"+a.Normalized] = a
	}
	n := 0
	for _, a := range merged {
		if a.Confirmations > 1 {
			n++
		}
	}
	return n
}

func tacticEvents(sessionID types.SessionID, ds []tactics.Detection, text string, at time.Time) []*types.TacticEvent {
	if len(ds) == 0 {
		return nil
	}
	out := make([]*types.TacticEvent, 0, len(ds))
	for _, d := range ds {
		out = append(out, &types.TacticEvent{
			SessionID:   sessionID,
			Turn:        d.Turn,
			Type:        d.Type,
			Description: d.Description,
			MessageText: text,
			Keywords:    d.Keywords,
			ThreatLevel: d.ThreatLevel,
			At:          at,
		})
	}
	return out
}
