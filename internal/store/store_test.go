package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

func openTestDB(t *testing.T) *SessionStore {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSessionStore(db)
}

func testSession(key string) *types.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.Session{
		ID:                types.NewSessionID(),
		Key:               types.SessionKey(key),
		Channel:           types.ChannelSMS,
		Language:          "en",
		Locale:            "en-IN",
		Persona:           types.PersonaElderlyUncle,
		InitialConfidence: 0.35,
		Status:            types.StatusActive,
		Phase:             types.PhaseUnknown,
		Confidence:        0.35,
		Tone:              types.ToneVector{Confusion: 0.4, Anxiety: 0.3, Urgency: 0.2, Compliance: 0.5, CognitiveLoad: 0.6},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func TestSessionStoreRoundTrip(t *testing.T) {
	sessions := openTestDB(t)
	ctx := context.Background()

	want := testSession("sms:+911234")
	if err := sessions.Create(ctx, want); err != nil {
		t.Fatal(err)
	}

	got, err := sessions.Get(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Key != want.Key || got.Persona != want.Persona || got.Channel != want.Channel {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if got.Tone != want.Tone {
		t.Errorf("tone mismatch: got %+v want %+v", got.Tone, want.Tone)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at mismatch: got %v want %v", got.CreatedAt, want.CreatedAt)
	}
	if got.CompletedAt != nil {
		t.Error("fresh session should have no completion time")
	}

	byKey, err := sessions.GetByKey(ctx, want.Key)
	if err != nil {
		t.Fatal(err)
	}
	if byKey.ID != want.ID {
		t.Errorf("GetByKey returned %s, want %s", byKey.ID, want.ID)
	}

	// Update rewrites the row whole, including terminal fields.
	done := time.Now().UTC().Truncate(time.Second)
	got.Status = types.StatusCompleted
	got.Phase = types.PhaseExiting
	got.ScamDetected = true
	got.Confidence = 0.91
	got.LastTurn = 12
	got.TotalMessages = 24
	got.CallbackSent = true
	got.CompletedAt = &done
	if err := sessions.Update(ctx, got); err != nil {
		t.Fatal(err)
	}

	got2, err := sessions.Get(ctx, want.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got2.Status != types.StatusCompleted || !got2.ScamDetected || !got2.CallbackSent {
		t.Errorf("update not persisted: %+v", got2)
	}
	if got2.CompletedAt == nil || !got2.CompletedAt.Equal(done) {
		t.Errorf("completed_at mismatch: %v", got2.CompletedAt)
	}
	if got2.LastTurn != 12 || got2.TotalMessages != 24 {
		t.Errorf("counters not persisted: %+v", got2)
	}
}

func TestSessionStoreNotFound(t *testing.T) {
	sessions := openTestDB(t)
	ctx := context.Background()

	if _, err := sessions.Get(ctx, types.SessionID("missing")); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := sessions.GetByKey(ctx, types.SessionKey("missing")); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := sessions.Update(ctx, testSession("sms:never-created")); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound on update, got %v", err)
	}
}

func TestSessionStoreDuplicateKey(t *testing.T) {
	sessions := openTestDB(t)
	ctx := context.Background()

	if err := sessions.Create(ctx, testSession("sms:dup")); err != nil {
		t.Fatal(err)
	}
	if err := sessions.Create(ctx, testSession("sms:dup")); err == nil {
		t.Error("expected unique key violation")
	}
}

func TestSessionStoreListFilter(t *testing.T) {
	sessions := openTestDB(t)
	ctx := context.Background()

	a := testSession("sms:a")
	b := testSession("sms:b")
	b.Status = types.StatusBurned
	c := testSession("wa:c")
	c.Channel = types.ChannelWhatsApp
	for _, s := range []*types.Session{a, b, c} {
		if err := sessions.Create(ctx, s); err != nil {
			t.Fatal(err)
		}
	}

	all, err := sessions.List(ctx, types.SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(all))
	}

	active, err := sessions.List(ctx, types.SessionFilter{Status: types.StatusActive})
	if err != nil {
		t.Fatal(err)
	}
	if len(active) != 2 {
		t.Errorf("expected 2 active sessions, got %d", len(active))
	}

	wa, err := sessions.List(ctx, types.SessionFilter{Channel: types.ChannelWhatsApp})
	if err != nil {
		t.Fatal(err)
	}
	if len(wa) != 1 || wa[0].ID != c.ID {
		t.Errorf("channel filter failed: %v", wa)
	}

	limited, err := sessions.List(ctx, types.SessionFilter{Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 session with limit, got %d", len(limited))
	}
}

func TestMessageStore(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := NewSessionStore(db)
	messages := NewMessageStore(db)
	ctx := context.Background()

	sess := testSession("sms:msgs")
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	scammer := &types.Message{
		ID: types.NewMessageID(), SessionID: sess.ID, Turn: 1,
		Sender: types.SenderScammer, Text: "your account is blocked",
		Phase: types.PhaseProbing, Confidence: 0.5, At: at,
	}
	agent := &types.Message{
		ID: types.NewMessageID(), SessionID: sess.ID, Turn: 1,
		Sender: types.SenderAgent, Text: "oh no what do i do",
		RawText:      "Oh no, what do I do?",
		Humanization: &types.Humanization{DelaySeconds: 42.5, TypoCount: 2, Truncated: false},
		Phase:        types.PhaseProbing, Confidence: 0.5, At: at.Add(time.Minute),
	}
	for _, msg := range []*types.Message{scammer, agent} {
		if err := messages.Append(ctx, msg); err != nil {
			t.Fatal(err)
		}
	}

	// Most recent first: the agent reply precedes the scammer message
	// of the same turn.
	recent, err := messages.Recent(ctx, sess.ID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(recent))
	}
	if recent[0].Sender != types.SenderAgent || recent[1].Sender != types.SenderScammer {
		t.Errorf("unexpected order: %s, %s", recent[0].Sender, recent[1].Sender)
	}

	if recent[1].Humanization != nil {
		t.Error("scammer message should carry no humanization")
	}
	h := recent[0].Humanization
	if h == nil || h.DelaySeconds != 42.5 || h.TypoCount != 2 || h.Truncated {
		t.Errorf("humanization round trip failed: %+v", h)
	}
	if recent[0].RawText != "Oh no, what do I do?" {
		t.Errorf("raw text round trip failed: %q", recent[0].RawText)
	}

	agentOnly, err := messages.RecentBySender(ctx, sess.ID, types.SenderAgent, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(agentOnly) != 1 || agentOnly[0].Sender != types.SenderAgent {
		t.Errorf("sender filter failed: %v", agentOnly)
	}

	n, err := messages.Count(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected count 2, got %d", n)
	}

	// Same (session, turn, sender) is a replay and must be rejected.
	dup := *scammer
	dup.ID = types.NewMessageID()
	if err := messages.Append(ctx, &dup); err == nil {
		t.Error("expected unique violation for replayed turn")
	}
}

func TestEvolutionStore(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := NewSessionStore(db)
	evolution := NewEvolutionStore(db)
	ctx := context.Background()

	sess := testSession("sms:evo")
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if _, err := evolution.Last(ctx, sess.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound for empty trail, got %v", err)
	}

	at := time.Now().UTC().Truncate(time.Second)
	for turn := 1; turn <= 3; turn++ {
		rec := &types.StateEvolution{
			SessionID:     sess.ID,
			MessageID:     types.NewMessageID(),
			Turn:          turn,
			PreviousPhase: types.PhaseUnknown,
			Phase:         types.PhaseProbing,
			Transitioned:  turn == 1,
			TurnsInPhase:  turn,
			Confidence:    0.35 + float64(turn)*0.1,
			Trend:         types.TrendIncreasing,
			Tone:          types.ToneVector{Confusion: 0.4},
			DriftRate:     0.15,
			Signals:       []string{"tactic:urgency_pressure"},
			At:            at,
		}
		if err := evolution.Append(ctx, rec); err != nil {
			t.Fatal(err)
		}
		if rec.ID == 0 {
			t.Error("expected assigned row id")
		}
	}

	hist, err := evolution.History(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 3 {
		t.Fatalf("expected 3 records, got %d", len(hist))
	}
	for i, rec := range hist {
		if rec.Turn != i+1 {
			t.Errorf("record %d out of order: turn %d", i, rec.Turn)
		}
	}
	if hist[0].Signals[0] != "tactic:urgency_pressure" {
		t.Errorf("signals round trip failed: %v", hist[0].Signals)
	}

	last, err := evolution.Last(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if last.Turn != 3 {
		t.Errorf("expected last turn 3, got %d", last.Turn)
	}

	// Appending the same turn twice violates the append-only uniqueness.
	if err := evolution.Append(ctx, &types.StateEvolution{
		SessionID: sess.ID, MessageID: types.NewMessageID(), Turn: 3,
		PreviousPhase: types.PhaseProbing, Phase: types.PhaseProbing,
		Trend: types.TrendStable, At: at,
	}); err == nil {
		t.Error("expected unique violation for duplicate turn")
	}
}

func TestArtifactStoreUpsert(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := NewSessionStore(db)
	artifacts := NewArtifactStore(db)
	ctx := context.Background()

	sess := testSession("sms:arts")
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	seen := time.Now().UTC().Truncate(time.Second)
	first := &types.Artifact{
		ID:            types.NewArtifactID(),
		SessionID:     sess.ID,
		Type:          types.ArtifactPaymentHandle,
		Value:         "scammer@paytm",
		Normalized:    "scammer@paytm",
		MessageID:     types.NewMessageID(),
		Turn:          5,
		Method:        "regex",
		Confirmations: 1,
		Confidence:    0.8,
		Context:       "pay to scammer@paytm now",
		Detail:        &types.PaymentHandleDetail{Handle: "scammer", Provider: "paytm"},
		FirstSeen:     seen,
		LastSeen:      seen,
	}

	got, err := artifacts.Upsert(ctx, first)
	if err != nil {
		t.Fatal(err)
	}
	if got.Confirmed || got.Confirmations != 1 {
		t.Errorf("fresh artifact should be unconfirmed with count 1: %+v", got)
	}
	detail, ok := got.Detail.(*types.PaymentHandleDetail)
	if !ok {
		t.Fatalf("detail round trip failed: %T", got.Detail)
	}
	if detail.Provider != "paytm" {
		t.Errorf("unexpected provider %q", detail.Provider)
	}

	// Second sighting of the same normalized value confirms, keeps the
	// original row identity, and advances last_seen only.
	again := *first
	again.ID = types.NewArtifactID()
	again.Turn = 9
	again.LastSeen = seen.Add(4 * time.Minute)
	merged, err := artifacts.Upsert(ctx, &again)
	if err != nil {
		t.Fatal(err)
	}
	if !merged.Confirmed || merged.Confirmations != 2 {
		t.Errorf("expected confirmed count 2, got %+v", merged)
	}
	if merged.ID != first.ID {
		t.Errorf("row identity changed: %s -> %s", first.ID, merged.ID)
	}
	if merged.Turn != 5 {
		t.Errorf("first-sighting turn should be preserved, got %d", merged.Turn)
	}
	if !merged.LastSeen.After(merged.FirstSeen) {
		t.Errorf("last_seen did not advance: %v / %v", merged.FirstSeen, merged.LastSeen)
	}

	list, err := artifacts.List(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("expected a single deduplicated row, got %d", len(list))
	}

	n, err := artifacts.CountConfirmed(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 confirmed artifact, got %d", n)
	}

	// A different normalized value is a separate artifact.
	other := *first
	other.ID = types.NewArtifactID()
	other.Value = "other@ybl"
	other.Normalized = "other@ybl"
	other.Detail = &types.PaymentHandleDetail{Handle: "other", Provider: "ybl"}
	if _, err := artifacts.Upsert(ctx, &other); err != nil {
		t.Fatal(err)
	}
	list, err = artifacts.List(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("expected 2 rows after distinct value, got %d", len(list))
	}
}

func TestTacticStore(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := NewSessionStore(db)
	tactics := NewTacticStore(db)
	ctx := context.Background()

	sess := testSession("sms:tactics")
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	event := &types.TacticEvent{
		SessionID:   sess.ID,
		Turn:        1,
		Type:        types.TacticUrgencyPressure,
		Description: "deadline and time-pressure language",
		MessageText: "act now, your account will be blocked today",
		Keywords:    []string{"act now", "today"},
		ThreatLevel: types.ThreatHigh,
		At:          time.Now().UTC().Truncate(time.Second),
	}
	if err := tactics.Append(ctx, event); err != nil {
		t.Fatal(err)
	}
	if event.ID == 0 {
		t.Error("expected assigned row id")
	}

	events, err := tactics.List(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != types.TacticUrgencyPressure || events[0].ThreatLevel != types.ThreatHigh {
		t.Errorf("event round trip failed: %+v", events[0])
	}
	if len(events[0].Keywords) != 2 || events[0].Keywords[0] != "act now" {
		t.Errorf("keywords round trip failed: %v", events[0].Keywords)
	}
}

func TestEvaluationStore(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	sessions := NewSessionStore(db)
	evals := NewEvaluationStore(db)
	ctx := context.Background()

	sess := testSession("sms:eval")
	if err := sessions.Create(ctx, sess); err != nil {
		t.Fatal(err)
	}

	if _, err := evals.Get(ctx, sess.ID); !errors.Is(err, types.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	eval := &types.Evaluation{
		SessionID:          sess.ID,
		EngagementDepth:    0.7,
		UniqueArtifacts:    4,
		ConfirmedArtifacts: 2,
		OverallQuality:     0.64,
		CalculatedAt:       time.Now().UTC().Truncate(time.Second),
	}
	if err := evals.Put(ctx, eval); err != nil {
		t.Fatal(err)
	}

	got, err := evals.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.UniqueArtifacts != 4 || got.OverallQuality != 0.64 {
		t.Errorf("evaluation round trip failed: %+v", got)
	}

	// Recalculation replaces the stored summary.
	eval.OverallQuality = 0.71
	if err := evals.Put(ctx, eval); err != nil {
		t.Fatal(err)
	}
	got, err = evals.Get(ctx, sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.OverallQuality != 0.71 {
		t.Errorf("expected replaced quality 0.71, got %v", got.OverallQuality)
	}
}
