package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/engine"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/evaluate"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/store"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionListCmd, sessionShowCmd, sessionAbortCmd, sessionEvaluateCmd)

	sessionListCmd.Flags().String("status", "", "filter by status (active, completed, terminated, burned)")
	sessionListCmd.Flags().String("persona", "", "filter by persona")
	sessionListCmd.Flags().Int("limit", 0, "maximum number of sessions to list")
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect and manage sessions",
}

// resolveSession accepts either a platform session key or an internal
// session id, preferring the key.
func resolveSession(ctx context.Context, sessions *store.SessionStore, ref string) (*types.Session, error) {
	sess, err := sessions.GetByKey(ctx, types.SessionKey(ref))
	if errors.Is(err, types.ErrNotFound) {
		return sessions.Get(ctx, types.SessionID(ref))
	}
	return sess, err
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		status, _ := cmd.Flags().GetString("status")
		personaName, _ := cmd.Flags().GetString("persona")
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		list, err := store.NewSessionStore(db).List(ctx, types.SessionFilter{
			Status:  types.SessionStatus(status),
			Persona: types.Persona(personaName),
			Limit:   limit,
		})
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tPERSONA\tSTATUS\tPHASE\tCONF\tRISK\tTURNS\tSCAM\tUPDATED")
		for _, s := range list {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%.2f\t%d\t%v\t%s\n",
				s.Key,
				s.Persona,
				s.Status,
				s.Phase,
				s.Confidence,
				s.ExposureRisk,
				s.LastTurn,
				s.ScamDetected,
				s.UpdatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <key|id>",
	Short: "Print a session record as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		sess, err := resolveSession(context.Background(), store.NewSessionStore(db), args[0])
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}
		out, err := json.MarshalIndent(sess, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

var sessionAbortCmd = &cobra.Command{
	Use:   "abort <key|id>",
	Short: "Terminate a session at the next turn boundary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := store.Open(cfg.DatabasePath())
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

		ctx := context.Background()
		sess, err := resolveSession(ctx, store.NewSessionStore(db), args[0])
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		machine := engine.NewMachine(stores, persona.NewRegistry(nil), nil)
		if err := machine.Abort(ctx, sess.ID); err != nil {
			return fmt.Errorf("abort session: %w", err)
		}

		fmt.Fprintf(os.Stdout, "Session %s terminated; the daemon's next sweep delivers its final report.\n", sess.Key)
		return nil
	},
}

var sessionEvaluateCmd = &cobra.Command{
	Use:   "evaluate <key|id>",
	Short: "Recompute and print the session's evaluation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := store.Open(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		ctx := context.Background()
		sess, err := resolveSession(ctx, store.NewSessionStore(db), args[0])
		if err != nil {
			return fmt.Errorf("load session: %w", err)
		}

		src := evaluate.Sources{
			Messages:  store.NewMessageStore(db),
			Evolution: store.NewEvolutionStore(db),
			Artifacts: store.NewArtifactStore(db),
			Tactics:   store.NewTacticStore(db),
		}
		ev, err := evaluate.ForSession(ctx, src, sess)
		if err != nil {
			return fmt.Errorf("evaluate session: %w", err)
		}
		if err := store.NewEvaluationStore(db).Put(ctx, ev); err != nil {
			return fmt.Errorf("store evaluation: %w", err)
		}

		out, err := json.MarshalIndent(ev, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}
