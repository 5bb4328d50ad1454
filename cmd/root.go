package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/maximbilan/orchat/internal/config"
	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/history"
	"github.com/maximbilan/orchat/internal/logger"
	"github.com/maximbilan/orchat/internal/openrouter"
	"github.com/maximbilan/orchat/internal/ratelimit"
	"github.com/maximbilan/orchat/internal/ui"
)

const (
	historyDirName = "history"

	rootLongDesc = `orchat is a terminal chat client for OpenRouter.

Run it without arguments to open the chat screen, or use "orchat ask" for
one-shot questions from scripts. The API key is read from
OPENROUTER_API_KEY when set, otherwise from the credential store
("orchat auth set").`
)

func newRootCmd() *cobra.Command {
	var resumeID string

	cmd := &cobra.Command{
		Use:           "orchat",
		Short:         "Chat with OpenRouter models from the terminal",
		Long:          rootLongDesc,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			deps, err := a.chatDeps()
			if err != nil {
				return err
			}

			var resume *history.Conversation
			if resumeID != "" {
				if deps.History == nil {
					return errors.New("history is disabled; set history_enabled to true to resume conversations")
				}
				resume, err = loadConversation(deps.History, resumeID)
				if err != nil {
					return err
				}
			}

			a.logger.Info("starting chat", "model", a.cfg.Model, "stream", a.cfg.Stream)
			return ui.Run(deps, resume)
		},
	}

	cmd.Flags().StringVarP(&resumeID, "resume", "r", "", "Resume a saved conversation by ID or ID prefix")

	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newModelsCmd())
	cmd.AddCommand(newHistoryCmd())
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app bundles what every command loads: config, the orchat directory, the
// credential store and a logger.
type app struct {
	cfg    *config.Config
	dir    string
	store  credential.Store
	logger *slog.Logger
	close  func() error
}

// setup loads config and opens the credential store. Interactive sessions
// log only to ~/.orchat/orchat.log; commands also log warnings to stderr.
func setup(interactive bool, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	dir, err := config.Dir()
	if err != nil {
		return nil, err
	}

	store, err := credential.Open(cfg.CredentialStore, dir)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, dir: dir, store: store, close: func() error { return nil }}

	var fileLogger *slog.Logger
	if f, err := logger.OpenFile(dir); err == nil {
		fileLogger = logger.New(logger.WithJSON(true), logger.WithDebug(cfg.Debug), logger.WithWriter(f))
		a.close = f.Close
	}

	switch {
	case interactive && fileLogger != nil:
		a.logger = fileLogger
	case interactive:
		a.logger = logger.Nop()
	default:
		level := slog.LevelWarn
		if cfg.Debug {
			level = slog.LevelDebug
		}
		pretty := logger.New(logger.WithPretty(true), logger.WithWriter(stderr), logger.WithLevel(level))
		if fileLogger != nil {
			a.logger = logger.Multi(pretty, fileLogger)
		} else {
			a.logger = pretty
		}
	}
	return a, nil
}

func (a *app) Close() {
	_ = a.close()
}

// credentials returns the store requests read their key from.
// OPENROUTER_API_KEY, when set, takes precedence for this process only.
func (a *app) credentials() credential.Store {
	if token := strings.TrimSpace(os.Getenv(credential.EnvVar)); token != "" {
		return credential.NewMemoryStore(token)
	}
	return a.store
}

// chatDeps wires the chat screen. The UI and the client share one credential
// store, so a key changed or cleared in the UI is used by the next request.
func (a *app) chatDeps() (ui.Deps, error) {
	creds := a.credentials()
	client, err := a.newClient(creds)
	if err != nil {
		return ui.Deps{}, err
	}
	hist, err := a.history()
	if err != nil {
		return ui.Deps{}, err
	}
	return ui.Deps{
		Config:      a.cfg,
		Chat:        client,
		Credentials: creds,
		History:     hist,
		Logger:      a.logger,
	}, nil
}

// newClient builds a client reading its key from creds. Callers that also
// hand creds to the UI must pass the same store so key changes reach both.
func (a *app) newClient(creds credential.Store) (*openrouter.Client, error) {
	opts := []openrouter.Option{
		openrouter.WithEndpoint(a.cfg.Endpoint),
		openrouter.WithAttribution(a.cfg.AppURL, a.cfg.AppTitle),
		openrouter.WithLogger(a.logger),
	}
	if limiter := createRateLimiter(a.cfg); limiter != nil {
		opts = append(opts, openrouter.WithRateLimiter(limiter))
	}
	return openrouter.New(creds, opts...)
}

// history opens the transcript store, or returns nil when history is off.
func (a *app) history() (*history.Store, error) {
	if !a.cfg.HistoryEnabled {
		return nil, nil
	}
	store, err := history.New(filepath.Join(a.dir, historyDirName), a.cfg.HistoryTTLDays)
	if err != nil {
		return nil, fmt.Errorf("failed to open history: %w", err)
	}
	return store, nil
}

// createRateLimiter creates a rate limiter from config, or returns nil if disabled
func createRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimitEnabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second, 0)
}

func loadConversation(hist *history.Store, idOrPrefix string) (*history.Conversation, error) {
	id, err := hist.Resolve(idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("conversation %q: %w", idOrPrefix, err)
	}
	conv, err := hist.Load(id)
	if err != nil {
		return nil, fmt.Errorf("conversation %q: %w", idOrPrefix, err)
	}
	return conv, nil
}

// isSensitiveConfigKey reports whether key names a secret. Secrets never
// live in config.yaml; they belong to the credential store.
func isSensitiveConfigKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	return key == "api_key" || strings.HasSuffix(key, "_api_key")
}

// maskSecret keeps the first and last four characters of long secrets.
func maskSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "***" + secret[len(secret)-4:]
}
