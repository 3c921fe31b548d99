package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/engine"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/gateway"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/httpapi"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/notify"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/persona"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/respond"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/runtime"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/scheduler"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/internal/store"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/pkg/llm"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/pkg/llm/gemini"
	"github.com/Navin-665/fake-victim-agent-powered-by-AI/pkg/llm/openai"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the honeypot daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "honeypot.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
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
	evals := store.NewEvaluationStore(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Personas: built-in defaults, overlaid with profile files that
	// reload live while the daemon runs.
	personas := persona.NewRegistry(nil)
	if err := personas.LoadDir(cfg.PersonaPath()); err != nil {
		return fmt.Errorf("load personas: %w", err)
	}
	if _, err := os.Stat(cfg.PersonaPath()); err == nil {
		if err := personas.Watch(ctx, cfg.PersonaPath()); err != nil {
			return fmt.Errorf("watch personas: %w", err)
		}
	}

	// LLM provider
	var provider llm.Provider
	model := cfg.LLM.Model
	switch strings.ToLower(cfg.LLM.Provider) {
	case "gemini":
		provider, err = gemini.New(ctx, &llm.Config{
			APIKey:      cfg.Gemini.APIKey,
			Model:       cfg.Gemini.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
		if err != nil {
			return fmt.Errorf("create gemini provider: %w", err)
		}
		model = cfg.Gemini.Model
	default:
		provider = openai.New(&llm.Config{
			BaseURL:     cfg.LLM.BaseURL,
			APIKey:      cfg.LLM.APIKey,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: cfg.LLM.Temperature,
		})
	}

	gen, err := respond.NewGenerator(provider, model, cfg.LLM.MaxContextTokens, cfg.LLM.OutputReserve, nil)
	if err != nil {
		return fmt.Errorf("create response generator: %w", err)
	}

	// Notifiers: the callback webhook is the required platform report;
	// telegram mirrors events to operators.
	reg := notify.NewRegistry(nil)
	if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != "" {
		chatID, err := strconv.ParseInt(cfg.Telegram.ChatID, 10, 64)
		if err != nil {
			return fmt.Errorf("parse telegram chat id: %w", err)
		}
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.Token, chatID, nil)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		reg.Register(tg)
		slog.Info("telegram notifier registered")
	} else {
		slog.Warn("telegram notifier disabled (no token or chat id)")
	}

	var callback notify.Notifier
	if cfg.Webhook.URL != "" {
		callback = notify.NewWebhookNotifier(cfg.Webhook.URL, cfg.Webhook.Secret, nil)
	} else {
		slog.Warn("final report callback disabled (no webhook url)")
	}
	coord := notify.NewCoordinator(stores.Sessions, callback, reg, nil)

	// Engine, gateway, runtime
	machine := engine.NewMachine(stores, personas, nil)
	gw := gateway.New(int64(cfg.MaxConcurrent), nil)
	rt := runtime.New(machine, gen, personas, stores, evals, coord, gw.Retry, nil)
	gw.Queue.SetProcessor(rt.ProcessTurn)

	gw.Start(ctx)
	defer gw.Stop()

	// Maintenance scheduler: idle-session reaper and callback retry sweep.
	idleAfter := time.Duration(cfg.Reaper.IdleMinutes) * time.Minute
	sched := scheduler.New(scheduler.ForRuntime(rt, cfg.Reaper.Spec, idleAfter), nil)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP API
	api := httpapi.NewServer(gw, rt, httpapi.Stores{
		Sessions:  stores.Sessions,
		Evolution: stores.Evolution,
		Artifacts: stores.Artifacts,
		Tactics:   stores.Tactics,
		Evals:     evals,
	}, nil)
	httpServer := &http.Server{
		Addr:        cfg.HTTP.Addr,
		Handler:     api,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http api listening", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("honeypot started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"llm_provider", cfg.LLM.Provider,
		"llm_model", model,
		"reaper_spec", cfg.Reaper.Spec,
		"idle_minutes", cfg.Reaper.IdleMinutes,
		"pid_file", pidPath,
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("http server: %w", err)
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				slog.Info("received SIGHUP, restarting")
				execPath, err := os.Executable()
				if err != nil {
					slog.Error("failed to get executable path", "error", err)
					continue
				}
				// Clean up PID file before re-exec
				os.Remove(pidPath)
				if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
					slog.Error("failed to re-exec", "error", err)
					// Re-write PID file since we failed to re-exec
					if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
						slog.Error("failed to re-write PID file", "error", writeErr)
					}
					continue
				}
			}

			// SIGINT or SIGTERM: stop accepting requests, then let the
			// deferred stops drain the queue and scheduler.
			slog.Info("shutting down", "signal", sig)
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				slog.Error("http shutdown", "error", err)
			}
			shutdownCancel()
			gw.Queue.WaitIdle(15 * time.Second)
			return nil
		}
	}
}
