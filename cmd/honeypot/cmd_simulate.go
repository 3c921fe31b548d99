package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/engine"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/gateway"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/notify"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/respond"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/runtime"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/store"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/pkg/llm"
)

var (
	simPersona string
	simChannel string
)

func init() {
	simulateCmd.Flags().StringVar(&simPersona, "persona", string(types.PersonaElderlyUncle), "persona to run the transcript against")
	simulateCmd.Flags().StringVar(&simChannel, "channel", string(types.ChannelSMS), "channel the transcript arrives on")
	rootCmd.AddCommand(simulateCmd)
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <transcript-file>",
	Short: "Replay a scripted scammer transcript offline",
	Long: `Replay a transcript file against the full turn pipeline without any
LLM provider or callback endpoint. Each non-empty line of the file is
one scammer message; lines starting with # are skipped. Replies come
from the deterministic fallback pool, so runs are reproducible.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

// offlineProvider fails every completion so the generator falls back to
// its deterministic persona pool. Simulations never touch the network.
type offlineProvider struct{}

func (offlineProvider) Complete(ctx context.Context, msgs []llm.Message) (*llm.Response, error) {
	return nil, errors.New("offline simulation")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	setupLogging(loadConfig())

	lines, err := readTranscript(args[0])
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("transcript %s has no scammer lines", args[0])
	}

	// The simulation runs against a throwaway database so it never
	// pollutes the daemon's sessions.
	dir, err := os.MkdirTemp("", "honeypot-sim-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	db, err := store.Open(filepath.Join(dir, "sim.db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	stores := engine.Stores{
		Sessions:  store.NewSessionStore(db),
		Messages:  store.NewMessageStore(db),
		Evolution: store.NewEvolutionStore(db),
		Artifacts: store.NewArtifactStore(db),
		Tactics:   store.NewTacticStore(db),
	}
	evals := store.NewEvaluationStore(db)

	personas := persona.NewRegistry(nil)
	who := types.Persona(strings.ToUpper(simPersona))
	if _, err := personas.Get(who); err != nil {
		return fmt.Errorf("unknown persona %q", simPersona)
	}

	gen, err := respond.NewGenerator(offlineProvider{}, "offline", 8192, 512, nil)
	if err != nil {
		return fmt.Errorf("build generator: %w", err)
	}

	coord := notify.NewCoordinator(stores.Sessions, nil, notify.NewRegistry(nil), nil)
	machine := engine.NewMachine(stores, personas, nil)
	rt := runtime.New(machine, gen, personas, stores, evals, coord, nil, nil)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	key := types.SessionKey("sim:" + strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0])))
	channel := types.Channel(strings.ToUpper(simChannel))

	var sessionID types.SessionID
	for i, line := range lines {
		msg := &types.InboundMessage{
			SessionKey: key,
			Channel:    channel,
			Persona:    who,
			Sender:     types.SenderScammer,
			Text:       line,
			At:         time.Now().UTC(),
		}

		var res *gateway.TurnResult
		turn := gateway.NewTurn(msg)
		turn.Ctx = ctx
		turn.OnComplete = func(r *gateway.TurnResult) { res = r }

		if err := rt.ProcessTurn(turn); err != nil {
			return fmt.Errorf("turn %d: %w", i+1, err)
		}
		if res == nil {
			return fmt.Errorf("turn %d produced no result", i+1)
		}
		if res.Err != nil {
			return fmt.Errorf("turn %d: %w", i+1, res.Err)
		}

		d := res.Decision
		sessionID = d.SessionID
		fmt.Printf("scammer> %s\n", line)
		fmt.Printf("victim>  %s\n", res.Reply)
		fmt.Printf("  turn=%d phase=%s conf=%.2f risk=%.2f detected=%v\n",
			d.Turn, d.Phase, d.Confidence, d.ExposureRisk, d.ScamDetected)
		for _, ev := range d.Tactics {
			fmt.Printf("  tactic: %s (%s)\n", ev.Type, ev.ThreatLevel)
		}
		for _, art := range d.Artifacts {
			fmt.Printf("  artifact: %s %s\n", art.Type, art.Normalized)
		}
		fmt.Println()

		if !d.ShouldContinue {
			fmt.Println("Session ended by the engine; stopping transcript early.")
			break
		}
	}

	sess, err := stores.Sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if err := rt.EvaluateSession(ctx, sess); err != nil {
		return fmt.Errorf("evaluate session: %w", err)
	}
	eval, err := evals.Get(ctx, sess.ID)
	if err != nil {
		return fmt.Errorf("load evaluation: %w", err)
	}

	out, err := json.MarshalIndent(eval, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println("Final evaluation:")
	fmt.Println(string(out))
	return nil
}

// readTranscript loads scammer lines from a file, one message per line.
// Blank lines and # comments are skipped.
func readTranscript(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	return lines, nil
}
