package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/openrouter"
	"github.com/maximbilan/orchat/internal/validation"
)

func TestIsSensitiveConfigKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{name: "api key", key: "api_key", want: true},
		{name: "provider-prefixed key", key: "openrouter_api_key", want: true},
		{name: "uppercase and spaces", key: " API_KEY ", want: true},
		{name: "non-sensitive key", key: "model", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSensitiveConfigKey(tt.key)
			if got != tt.want {
				t.Fatalf("isSensitiveConfigKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{name: "long key", value: "sk-or-v1-1234567890", want: "sk-o***7890"},
		{name: "short key", value: "short", want: "***"},
		{name: "empty key", value: "", want: "***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := maskSecret(tt.value)
			if got != tt.want {
				t.Fatalf("maskSecret(%q) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}

// useTempHome points HOME at a fresh directory and clears global state the
// commands read.
func useTempHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(credential.EnvVar, "")
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

// run executes the root command with args and returns what it printed.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	viper.Reset()
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	useTempHome(t)

	out, err := run(t, "", "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "*  anthropic/claude-3-opus") {
		t.Errorf("default model not marked:\n%s", out)
	}
	if !strings.Contains(out, "openai/gpt-4o") {
		t.Errorf("catalogue missing entries:\n%s", out)
	}

	t.Setenv("ORCHAT_MODEL", "mistralai/mistral-large")
	out, err = run(t, "", "models")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	if !strings.Contains(out, "mistralai/mistral-large") || !strings.Contains(out, "(custom)") {
		t.Errorf("custom model not listed:\n%s", out)
	}
}

func TestConfigCommands(t *testing.T) {
	home := useTempHome(t)

	out, err := run(t, "", "config", "init")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, filepath.Join(home, ".orchat", "config.yaml")) {
		t.Errorf("init output = %q", out)
	}

	if _, err := run(t, "", "config", "set", "temperature", "0.3"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err = run(t, "", "config", "get", "temperature")
	if err != nil {
		t.Fatalf("config get: %v", err)
	}
	if strings.TrimSpace(out) != "temperature = 0.3" {
		t.Errorf("config get = %q", out)
	}

	t.Run("invalid value is rolled back", func(t *testing.T) {
		if _, err := run(t, "", "config", "set", "temperature", "5"); err == nil {
			t.Fatal("expected error for out-of-range temperature")
		}
		out, err := run(t, "", "config", "get", "temperature")
		if err != nil {
			t.Fatalf("config get: %v", err)
		}
		if strings.TrimSpace(out) != "temperature = 0.3" {
			t.Errorf("config get after rollback = %q", out)
		}
	})

	t.Run("api key refused", func(t *testing.T) {
		_, err := run(t, "", "config", "set", "api_key", "sk-or-v1-secret")
		if err == nil || !strings.Contains(err.Error(), "orchat auth set") {
			t.Fatalf("err = %v, want pointer to auth set", err)
		}
		data, err := os.ReadFile(filepath.Join(home, ".orchat", "config.yaml"))
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(string(data), "sk-or-v1-secret") {
			t.Error("secret written to config.yaml")
		}
	})

	t.Run("unknown key refused", func(t *testing.T) {
		if _, err := run(t, "", "config", "set", "colour", "blue"); err == nil {
			t.Fatal("expected error for unknown key")
		}
	})

	t.Run("list", func(t *testing.T) {
		out, err := run(t, "", "config", "list")
		if err != nil {
			t.Fatalf("config list: %v", err)
		}
		for _, want := range []string{"model = anthropic/claude-3-opus", "temperature = 0.3", "credential_store = file"} {
			if !strings.Contains(out, want) {
				t.Errorf("list missing %q:\n%s", want, out)
			}
		}
	})
}

func TestAuthLifecycle(t *testing.T) {
	home := useTempHome(t)
	const key = "sk-or-v1-abcdef123456"

	out, err := run(t, "", "auth", "status")
	if err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !strings.Contains(out, "No API key stored") {
		t.Errorf("status before set = %q", out)
	}

	if _, err := run(t, "", "auth", "set"); err == nil {
		t.Error("expected error when stdin is empty")
	}

	out, err = run(t, key+"\n", "auth", "set")
	if err != nil {
		t.Fatalf("auth set: %v", err)
	}
	if !strings.Contains(out, "API key saved (file store)") {
		t.Errorf("set output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".orchat", "credentials.toml")); err != nil {
		t.Errorf("credentials file: %v", err)
	}

	out, err = run(t, "", "auth", "status")
	if err != nil {
		t.Fatalf("auth status: %v", err)
	}
	if !strings.Contains(out, maskSecret(key)) || strings.Contains(out, key) {
		t.Errorf("status should show only the masked key: %q", out)
	}

	if _, err := run(t, "", "auth", "clear"); err != nil {
		t.Fatalf("auth clear: %v", err)
	}
	out, _ = run(t, "", "auth", "status")
	if !strings.Contains(out, "No API key stored") {
		t.Errorf("status after clear = %q", out)
	}
}

func TestReadAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "first line", in: "sk-or-v1-key\nignored\n", want: "sk-or-v1-key"},
		{name: "surrounding space", in: "  sk-or-v1-key  ", want: "sk-or-v1-key"},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readAPIKey(strings.NewReader(tt.in), io.Discard)
			if (err != nil) != tt.wantErr {
				t.Fatalf("readAPIKey() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadPrompt(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{name: "args joined", args: []string{"what", "is", "go?"}, want: "what is go?"},
		{name: "args win over stdin", args: []string{"hi"}, stdin: "ignored", want: "hi"},
		{name: "stdin", stdin: "  summarise this\n", want: "summarise this"},
		{name: "blank", stdin: " \n", wantErr: true},
		{name: "too long", stdin: strings.Repeat("a", validation.MaxInputLength+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readPrompt(tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readPrompt() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readPrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeOpenRouter answers chat completions with reply, streaming it in two
// frames when the request asks for a stream.
func fakeOpenRouter(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-or-v1-env" {
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":{"message":"No auth credentials found","code":401}}`)
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !bytes.Contains(body, []byte(`"stream":true`)) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":%q}}]}`, reply)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		half := len(reply) / 2
		for _, part := range []string{reply[:half], reply[half:]} {
			fmt.Fprintf(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAskCommand(t *testing.T) {
	useTempHome(t)
	srv := fakeOpenRouter(t, "Paris")
	t.Setenv("ORCHAT_ENDPOINT", srv.URL)
	t.Setenv(credential.EnvVar, "sk-or-v1-env")

	out, err := run(t, "", "ask", "What", "is", "the", "capital", "of", "France?")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if out != "Paris\n" {
		t.Errorf("streamed output = %q, want %q", out, "Paris\n")
	}

	out, err = run(t, "Capital of France?", "ask", "--no-stream")
	if err != nil {
		t.Fatalf("ask --no-stream: %v", err)
	}
	if out != "Paris\n" {
		t.Errorf("non-streamed output = %q, want %q", out, "Paris\n")
	}

	out, err = run(t, "", "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 2 {
		t.Fatalf("history has %d entries, want 2:\n%s", len(lines), out)
	}
	if !strings.Contains(out, "What is the capital of France?") {
		t.Errorf("history missing title:\n%s", out)
	}

	t.Run("bad flag value", func(t *testing.T) {
		if _, err := run(t, "", "ask", "--temperature", "3", "hi"); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("remote error", func(t *testing.T) {
		t.Setenv(credential.EnvVar, "sk-or-v1-wrong")
		_, err := run(t, "", "ask", "hi")
		if err == nil || !strings.Contains(err.Error(), "No auth credentials found") {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		t.Setenv(credential.EnvVar, "")
		_, err := run(t, "", "ask", "hi")
		if err == nil || !strings.Contains(err.Error(), "orchat auth set") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestHistoryCommands(t *testing.T) {
	useTempHome(t)
	srv := fakeOpenRouter(t, "Hi there")
	t.Setenv("ORCHAT_ENDPOINT", srv.URL)
	t.Setenv(credential.EnvVar, "sk-or-v1-env")

	out, err := run(t, "", "history", "list")
	if err != nil {
		t.Fatalf("history list: %v", err)
	}
	if !strings.Contains(out, "No saved conversations") {
		t.Errorf("empty list = %q", out)
	}

	if _, err := run(t, "", "ask", "hello"); err != nil {
		t.Fatalf("ask: %v", err)
	}
	out, _ = run(t, "", "history", "list")
	prefix := strings.Fields(out)[0]

	out, err = run(t, "", "history", "show", prefix)
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	for _, want := range []string{"You:\nhello", "Claude 3 Opus:\nHi there"} {
		if !strings.Contains(out, want) {
			t.Errorf("show missing %q:\n%s", want, out)
		}
	}

	if _, err := run(t, "", "history", "show", "ffffffff"); err == nil {
		t.Error("expected error for unknown conversation")
	}

	out, err = run(t, "", "history", "prune")
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	if !strings.Contains(out, "Removed 0 expired") {
		t.Errorf("prune output = %q", out)
	}

	if _, err := run(t, "", "history", "delete", prefix); err != nil {
		t.Fatalf("history delete: %v", err)
	}
	out, _ = run(t, "", "history", "list")
	if !strings.Contains(out, "No saved conversations") {
		t.Errorf("list after delete = %q", out)
	}

	t.Run("disabled", func(t *testing.T) {
		t.Setenv("ORCHAT_HISTORY_ENABLED", "false")
		_, err := run(t, "", "history", "list")
		if err == nil || !strings.Contains(err.Error(), "history is disabled") {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestDescribeErrorKeepsCause(t *testing.T) {
	base := errors.New("boom")
	if got := describeError(base); got != base {
		t.Errorf("describeError changed an unrelated error: %v", got)
	}
}

func TestChatDepsShareCredentials(t *testing.T) {
	useTempHome(t)
	srv := fakeOpenRouter(t, "ok")
	t.Setenv("ORCHAT_ENDPOINT", srv.URL)
	t.Setenv(credential.EnvVar, "sk-or-v1-env")

	a, err := setup(false, io.Discard)
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer a.Close()

	deps, err := a.chatDeps()
	if err != nil {
		t.Fatalf("chatDeps: %v", err)
	}
	req := openrouter.CompletionRequest{
		Model:    "openai/gpt-4o",
		Messages: []openrouter.Message{openrouter.UserMessage("hi")},
	}

	reply, err := deps.Chat.Complete(t.Context(), req)
	if err != nil || reply.Content != "ok" {
		t.Fatalf("Complete with env key = %q, %v", reply.Content, err)
	}

	if err := deps.Credentials.Save("sk-or-v1-replaced"); err != nil {
		t.Fatal(err)
	}
	_, err = deps.Chat.Complete(t.Context(), req)
	var remote *openrouter.RemoteError
	if !errors.As(err, &remote) || remote.StatusCode != http.StatusUnauthorized {
		t.Fatalf("Complete after key change: err = %v, want 401 for the replaced key", err)
	}

	if err := deps.Credentials.Clear(); err != nil {
		t.Fatal(err)
	}
	if _, err := deps.Chat.Complete(t.Context(), req); !errors.Is(err, openrouter.ErrMissingCredential) {
		t.Fatalf("Complete after clear: err = %v, want ErrMissingCredential", err)
	}
}
