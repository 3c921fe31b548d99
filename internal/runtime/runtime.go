package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/engine"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/evaluate"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/gateway"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/humanize"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/notify"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/respond"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

// historyWindow is how many recent messages the prompt builder may see;
// its token budget trims further from the oldest end.
const historyWindow = 30

// Runtime drives one full turn: advance the engine, render the
// in-persona reply, humanize it, record it, then fire evaluations and
// notifications for sessions that detected or ended. ProcessTurn is the
// function behind Queue.SetProcessor.
type Runtime struct {
	machine   *engine.Machine
	generator *respond.Generator
	personas  *persona.Registry
	stores    engine.Stores
	evals     types.EvaluationStore
	coord     *notify.Coordinator
	retry     *gateway.RetryPolicy
	logger    *slog.Logger
}

// New creates a Runtime with the given dependencies.
func New(
	machine *engine.Machine,
	generator *respond.Generator,
	personas *persona.Registry,
	stores engine.Stores,
	evals types.EvaluationStore,
	coord *notify.Coordinator,
	retry *gateway.RetryPolicy,
	logger *slog.Logger,
) *Runtime {
	if retry == nil {
		retry = gateway.DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		machine:   machine,
		generator: generator,
		personas:  personas,
		stores:    stores,
		evals:     evals,
		coord:     coord,
		retry:     retry,
		logger:    logger,
	}
}

// ProcessTurn executes the pipeline for a single queued turn.
func (rt *Runtime) ProcessTurn(turn *gateway.Turn) error {
	ctx := turn.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	turn.Attempts++

	// The engine call is the only stage with transient failure modes
	// worth retrying; it persists nothing until its final step, so a
	// retried attempt re-runs the same pure computation.
	var decision *types.Decision
	err := rt.retry.Execute(func() error {
		var perr error
		decision, perr = rt.machine.ProcessTurn(ctx, turn.Message)
		return perr
	})
	if err != nil {
		return err
	}

	session, err := rt.stores.Sessions.Get(ctx, decision.SessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	profile, err := rt.personas.Get(session.Persona)
	if err != nil {
		return fmt.Errorf("load persona: %w", err)
	}
	history, err := rt.stores.Messages.Recent(ctx, session.ID, historyWindow)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	view := decision.ResponderView()
	raw := rt.generator.Generate(ctx, profile, view, history, session.ID, decision.Turn)
	final, fx := humanize.Apply(profile, session.ID, decision.Turn, raw)

	if _, err := rt.machine.RecordAgentReply(ctx, session.ID, decision.Turn, raw, final, fx); err != nil {
		return fmt.Errorf("record reply: %w", err)
	}
	// Mirror the reply just recorded so the callback payload counts it.
	session.TotalMessages++

	notes := buildNotes(decision)
	rt.report(ctx, session, decision, notes)

	if turn.OnComplete != nil {
		turn.OnComplete(&gateway.TurnResult{
			Decision: decision,
			Reply:    final,
			Notes:    notes,
		})
	}
	return nil
}

// report handles the side channel out of a turn: the operator burn
// alert, the end-of-session evaluation, and the final callback. None of
// these may fail the turn; the scheduler sweep retries reporting later.
func (rt *Runtime) report(ctx context.Context, session *types.Session, decision *types.Decision, notes string) {
	// A burn after the final report went out still deserves an operator
	// alert; otherwise the report below carries the burn itself.
	if decision.Status == types.StatusBurned && session.CallbackSent {
		rt.coord.Alert(ctx, notify.KindSessionBurned, session)
	}

	if decision.Status.Terminal() {
		if err := rt.EvaluateSession(ctx, session); err != nil {
			rt.logger.Error("evaluation failed",
				"session_id", string(session.ID), "error", err)
		}
	}

	if !session.CallbackSent && (decision.ScamDetected || decision.Status.Terminal()) {
		rt.finalReport(ctx, session, notes)
	}
}

// finalReport assembles and delivers the session's callback payload.
// Failures are logged, not returned; the scheduler sweep retries
// sessions whose callback_sent flag never got set.
func (rt *Runtime) finalReport(ctx context.Context, session *types.Session, notes string) {
	artifacts, err := rt.stores.Artifacts.List(ctx, session.ID)
	if err != nil {
		rt.logger.Error("load artifacts for callback",
			"session_id", string(session.ID), "error", err)
		return
	}
	payload := notify.BuildCallback(session, artifacts, notes)
	if err := rt.coord.FinalReport(ctx, session, payload); err != nil {
		rt.logger.Error("final report failed",
			"session_id", string(session.ID), "error", err)
	}
}

// Abort terminates a session at a turn boundary on operator demand and
// runs its end-of-session reporting immediately instead of waiting for
// the scheduler sweep. Returns the session in its terminated state.
func (rt *Runtime) Abort(ctx context.Context, id types.SessionID) (*types.Session, error) {
	return rt.closeOut(ctx, id, "session terminated by operator")
}

// closeOut aborts the session, evaluates it, and delivers its final
// callback if none went out yet.
func (rt *Runtime) closeOut(ctx context.Context, id types.SessionID, notes string) (*types.Session, error) {
	if err := rt.machine.Abort(ctx, id); err != nil {
		return nil, err
	}
	session, err := rt.stores.Sessions.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if err := rt.EvaluateSession(ctx, session); err != nil {
		rt.logger.Error("evaluation failed",
			"session_id", string(session.ID), "error", err)
	}
	if !session.CallbackSent {
		rt.finalReport(ctx, session, notes)
	}
	return session, nil
}

// ReapIdle closes active sessions with no activity since idleAfter ago.
// A scammer who goes quiet never sends the turn that would end their
// session, so the reaper provides the terminal transition for them.
// Returns the number of sessions closed.
func (rt *Runtime) ReapIdle(ctx context.Context, idleAfter time.Duration) (int, error) {
	sessions, err := rt.stores.Sessions.List(ctx, types.SessionFilter{Status: types.StatusActive})
	if err != nil {
		return 0, fmt.Errorf("list active sessions: %w", err)
	}

	cutoff := time.Now().UTC().Add(-idleAfter)
	reaped := 0
	for _, sess := range sessions {
		if sess.UpdatedAt.After(cutoff) {
			continue
		}
		if _, err := rt.closeOut(ctx, sess.ID, "session closed after idle timeout"); err != nil {
			// A turn racing the reaper may close the session first.
			if !errors.Is(err, types.ErrSessionClosed) {
				rt.logger.Error("reap failed",
					"session_id", string(sess.ID), "error", err)
			}
			continue
		}
		rt.logger.Info("idle session reaped",
			"session_id", string(sess.ID), "last_activity", sess.UpdatedAt)
		reaped++
	}
	return reaped, nil
}

// RetryCallbacks re-attempts reporting for sessions whose callback
// never went out: ended sessions, plus active ones that already hold a
// scam verdict. A delivery failure leaves callback_sent unset, so each
// sweep retries the session until the platform accepts the report.
// Returns the number of callbacks delivered.
func (rt *Runtime) RetryCallbacks(ctx context.Context) (int, error) {
	sessions, err := rt.stores.Sessions.List(ctx, types.SessionFilter{})
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	sent := 0
	for _, sess := range sessions {
		if sess.CallbackSent || (!sess.Status.Terminal() && !sess.ScamDetected) {
			continue
		}
		if sess.Status.Terminal() {
			if _, err := rt.evals.Get(ctx, sess.ID); errors.Is(err, types.ErrNotFound) {
				if err := rt.EvaluateSession(ctx, sess); err != nil {
					rt.logger.Error("evaluation failed",
						"session_id", string(sess.ID), "error", err)
				}
			}
		}
		notes := fmt.Sprintf("phase %s, confidence %.2f, exposure %.2f",
			sess.Phase, sess.Confidence, sess.ExposureRisk)
		rt.finalReport(ctx, sess, notes)
		if sess.CallbackSent {
			sent++
		}
	}
	return sent, nil
}

// EvaluateSession computes and stores the session's evaluation summary.
// Safe to call more than once; the summary is recomputed and replaced.
func (rt *Runtime) EvaluateSession(ctx context.Context, session *types.Session) error {
	src := evaluate.Sources{
		Messages:  rt.stores.Messages,
		Evolution: rt.stores.Evolution,
		Artifacts: rt.stores.Artifacts,
		Tactics:   rt.stores.Tactics,
	}
	ev, err := evaluate.ForSession(ctx, src, session)
	if err != nil {
		return err
	}
	if err := rt.evals.Put(ctx, ev); err != nil {
		return fmt.Errorf("store evaluation: %w", err)
	}
	rt.logger.Info("session evaluated",
		"session_id", string(session.ID),
		"overall_quality", ev.OverallQuality,
		"artifacts", ev.UniqueArtifacts,
		"premature_exits", ev.PrematureExits)
	return nil
}

// buildNotes renders the decision bundle as a one-line analyst summary
// for the agentNotes field.
func buildNotes(d *types.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "phase %s, confidence %.2f, exposure %.2f", d.Phase, d.Confidence, d.ExposureRisk)

	if len(d.Tactics) > 0 {
		seen := make(map[types.TacticType]struct{}, len(d.Tactics))
		var names []string
		for _, ev := range d.Tactics {
			if _, dup := seen[ev.Type]; dup {
				continue
			}
			seen[ev.Type] = struct{}{}
			names = append(names, string(ev.Type))
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "; tactics: %s", strings.Join(names, ", "))
	}

	if len(d.Artifacts) > 0 {
		confirmed := 0
		for _, a := range d.Artifacts {
			if a.Confirmed {
				confirmed++
			}
		}
		fmt.Fprintf(&b, "; artifacts this turn: %d (%d confirmed)", len(d.Artifacts), confirmed)
	}

	if d.ScamDetected {
		b.WriteString("; scam verdict reached")
	}
	if !d.ShouldContinue {
		b.WriteString("; conversation closing")
	}
	return b.String()
}
