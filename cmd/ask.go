package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/maximbilan/orchat/internal/clipboard"
	"github.com/maximbilan/orchat/internal/config"
	"github.com/maximbilan/orchat/internal/history"
	"github.com/maximbilan/orchat/internal/openrouter"
	"github.com/maximbilan/orchat/internal/validation"
)

const askLongDesc = `Send a single prompt and print the reply.

The prompt is taken from the arguments, or from stdin when no arguments are
given. Replies stream to stdout as they arrive unless --no-stream is set.

Examples:
  orchat ask "What is the capital of France?"
  orchat ask --model openai/gpt-4o --temperature 0 "Write a haiku"
  git diff | orchat ask --system "Review this patch"`

type askOptions struct {
	model       string
	temperature float64
	topP        float64
	maxTokens   int
	system      string
	copy        bool
	noStream    bool
}

func newAskCmd() *cobra.Command {
	opts := &askOptions{}

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Ask a one-shot question",
		Long:  askLongDesc,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}

			req, err := buildAskRequest(a.cfg, opts, cmd, prompt)
			if err != nil {
				return err
			}

			client, err := a.newClient(a.credentials())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, requestTimeout(a.cfg))
			defer cancel()

			out := cmd.OutOrStdout()
			var reply string
			if opts.noStream || !a.cfg.Stream {
				reply, err = completeOnce(ctx, client, req, out, a.cfg.RenderMarkdown, a.cfg.Theme)
			} else {
				reply, err = streamOnce(ctx, client, req, out)
			}
			if err != nil {
				return err
			}

			if opts.copy || a.cfg.AutoCopy {
				if err := clipboard.Copy(reply); err != nil {
					a.logger.Warn("copy to clipboard failed", "error", err)
				}
			}

			hist, err := a.history()
			if err != nil {
				a.logger.Warn("history unavailable", "error", err)
				return nil
			}
			if hist != nil {
				conv := history.NewConversation(req.Model)
				conv.Append(req.Messages...)
				conv.Append(openrouter.AssistantMessage(reply))
				if err := hist.Save(conv); err != nil {
					a.logger.Warn("saving conversation failed", "error", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.model, "model", "m", "", "Model ID (default from config)")
	cmd.Flags().Float64VarP(&opts.temperature, "temperature", "t", 0, "Sampling temperature between 0 and 1")
	cmd.Flags().Float64Var(&opts.topP, "top-p", 0, "Nucleus sampling probability")
	cmd.Flags().IntVar(&opts.maxTokens, "max-tokens", 0, "Maximum tokens to generate")
	cmd.Flags().StringVarP(&opts.system, "system", "s", "", "System prompt (default from config)")
	cmd.Flags().BoolVarP(&opts.copy, "copy", "c", false, "Copy the reply to the clipboard")
	cmd.Flags().BoolVar(&opts.noStream, "no-stream", false, "Wait for the whole reply instead of streaming")
	return cmd
}

// readPrompt joins args, or reads stdin when there are none.
func readPrompt(args []string, stdin io.Reader) (string, error) {
	prompt := strings.Join(args, " ")
	if prompt == "" && stdin != nil {
		if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return "", errors.New("prompt required: pass it as an argument or pipe it on stdin")
		}
		data, err := io.ReadAll(io.LimitReader(stdin, validation.MaxInputLength+1))
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if err := validation.ValidateTextInput(prompt); err != nil {
		return "", err
	}
	return prompt, nil
}

// buildAskRequest merges flags over config. Only flags the user actually set
// override the configured generation parameters.
func buildAskRequest(cfg *config.Config, opts *askOptions, cmd *cobra.Command, prompt string) (openrouter.CompletionRequest, error) {
	req := openrouter.CompletionRequest{
		Model:       cfg.Model,
		Temperature: openrouter.Float(cfg.Temperature),
		TopP:        openrouter.Float(cfg.TopP),
		MaxTokens:   openrouter.Int(cfg.MaxTokens),
	}
	flags := cmd.Flags()
	if flags.Changed("model") {
		req.Model = opts.model
	}
	if flags.Changed("temperature") {
		req.Temperature = openrouter.Float(opts.temperature)
	}
	if flags.Changed("top-p") {
		req.TopP = openrouter.Float(opts.topP)
	}
	if flags.Changed("max-tokens") {
		req.MaxTokens = openrouter.Int(opts.maxTokens)
	}

	system := cfg.SystemPrompt
	if flags.Changed("system") {
		system = opts.system
	}
	if system = strings.TrimSpace(system); system != "" {
		req.Messages = append(req.Messages, openrouter.SystemMessage(system))
	}
	req.Messages = append(req.Messages, openrouter.UserMessage(prompt))

	if err := validation.ValidateModel(req.Model); err != nil {
		return req, err
	}
	if err := validation.ValidateTemperature(*req.Temperature); err != nil {
		return req, err
	}
	if err := validation.ValidateTopP(*req.TopP); err != nil {
		return req, err
	}
	if err := validation.ValidateMaxTokens(*req.MaxTokens); err != nil {
		return req, err
	}
	return req, nil
}

func requestTimeout(cfg *config.Config) time.Duration {
	if cfg.RequestTimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(cfg.RequestTimeoutSeconds) * time.Second
}

// streamOnce prints deltas as they arrive and returns the full reply.
func streamOnce(ctx context.Context, chat openrouter.Chatter, req openrouter.CompletionRequest, out io.Writer) (string, error) {
	var (
		reply     string
		streamErr error
	)
	chat.Stream(ctx, req, openrouter.StreamHandler{
		OnChunk: func(delta string) {
			fmt.Fprint(out, delta)
		},
		OnComplete: func(full string) {
			reply = full
			fmt.Fprintln(out)
		},
		OnError: func(err error) {
			streamErr = err
		},
	})
	if streamErr != nil {
		return "", describeError(streamErr)
	}
	return reply, nil
}

// completeOnce waits for the whole reply, rendering it as markdown when
// stdout is a terminal.
func completeOnce(ctx context.Context, chat openrouter.Chatter, req openrouter.CompletionRequest, out io.Writer, markdown bool, theme string) (string, error) {
	reply, err := chat.Complete(ctx, req)
	if err != nil {
		return "", describeError(err)
	}

	text := reply.Content
	if markdown && isTerminal(out) {
		if rendered, err := renderMarkdown(text, theme); err == nil {
			text = rendered
		}
	}
	fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	return reply.Content, nil
}

func renderMarkdown(content, theme string) (string, error) {
	styleOpt := glamour.WithStandardStyle(theme)
	if theme == "" || theme == "auto" {
		styleOpt = glamour.WithAutoStyle()
	}
	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return content, err
	}
	return r.Render(content)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// describeError adds a hint for errors the user can fix.
func describeError(err error) error {
	var remote *openrouter.RemoteError
	switch {
	case errors.Is(err, openrouter.ErrMissingCredential):
		return fmt.Errorf("%w. Run: orchat auth set", err)
	case errors.As(err, &remote) && remote.StatusCode == 401:
		return fmt.Errorf("%w. Check your API key with: orchat auth status", err)
	}
	return err
}
