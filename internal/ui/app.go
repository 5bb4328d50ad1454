package ui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maximbilan/orchat/internal/clipboard"
	"github.com/maximbilan/orchat/internal/config"
	"github.com/maximbilan/orchat/internal/credential"
	"github.com/maximbilan/orchat/internal/history"
	"github.com/maximbilan/orchat/internal/logger"
	"github.com/maximbilan/orchat/internal/openrouter"
	"github.com/maximbilan/orchat/internal/validation"
)

const (
	defaultTimeoutSeconds = 120
	temperatureStep       = 0.1
	inputHeight           = 3
)

type Mode int

const (
	ModeChat Mode = iota
	ModeAPIKey
	ModeSettings
	ModeHelp
)

// Settings panel rows.
const (
	settingTemperature = iota
	settingChangeKey
	settingSignOut
	settingCount
)

// turn is one transcript entry. Failed turns are error notices: shown, but
// never sent back to the model or saved.
type turn struct {
	msg    openrouter.Message
	failed bool
}

// Deps are the services the chat screen works with.
type Deps struct {
	Config      *config.Config
	Chat        openrouter.Chatter
	Credentials credential.Store
	// History is optional; nil disables transcript saving.
	History *history.Store
	Logger  *slog.Logger
	// SaveConfig persists settings changed from the UI. Defaults to
	// config.Save.
	SaveConfig func(*config.Config) error
}

type Model struct {
	mode     Mode
	prevMode Mode

	// UI Components
	input    textarea.Model
	keyInput textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	markdown *markdownRenderer

	// Conversation state
	turns     []turn
	partial   string
	streaming bool
	cancelled bool
	cancel    context.CancelFunc
	events    <-chan openrouter.Event

	model          string
	settingsCursor int

	status string
	error  string

	// Services
	chat       openrouter.Chatter
	store      credential.Store
	history    *history.Store
	conv       *history.Conversation
	config     *config.Config
	logger     *slog.Logger
	saveConfig func(*config.Config) error

	// Dimensions
	width  int
	height int
}

// Messages
type streamEventMsg struct {
	event openrouter.Event
}

type completionMsg struct {
	reply openrouter.Message
	err   error
}

type statusMsg string

func NewModel(deps Deps) (*Model, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Chat == nil {
		return nil, fmt.Errorf("chat client is required")
	}
	if deps.Credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.SaveConfig == nil {
		deps.SaveConfig = config.Save
	}

	input := textarea.New()
	input.Placeholder = "Send a message..."
	input.CharLimit = validation.MaxInputLength
	input.ShowLineNumbers = false
	input.SetWidth(80)
	input.SetHeight(inputHeight)
	input.KeyMap.InsertNewline = key.NewBinding(
		key.WithKeys("ctrl+j"),
		key.WithHelp("ctrl+j", "insert newline"),
	)

	keyInput := textinput.New()
	keyInput.Placeholder = "sk-or-..."
	keyInput.EchoMode = textinput.EchoPassword
	keyInput.EchoCharacter = '•'
	keyInput.Width = 60

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))

	model := deps.Config.Model
	if model == "" {
		model = openrouter.DefaultModel
	}

	m := &Model{
		mode:       ModeChat,
		input:      input,
		keyInput:   keyInput,
		viewport:   viewport.New(80, 20),
		spinner:    spin,
		markdown:   newMarkdownRenderer(deps.Config.RenderMarkdown, deps.Config.Theme, 78),
		model:      model,
		chat:       deps.Chat,
		store:      deps.Credentials,
		history:    deps.History,
		conv:       history.NewConversation(model),
		config:     deps.Config,
		logger:     deps.Logger,
		saveConfig: deps.SaveConfig,
		status:     "Ready. Enter to send, F1 for help",
	}

	if deps.Credentials.Has() {
		m.input.Focus()
	} else {
		m.enterAPIKeyMode("Enter your OpenRouter API key to start chatting")
	}
	m.refreshTranscript()
	return m, nil
}

// Resume loads a saved conversation into the transcript.
func (m *Model) Resume(c *history.Conversation) {
	m.conv = c
	m.turns = m.turns[:0]
	for _, msg := range c.Messages {
		m.turns = append(m.turns, turn{msg: msg})
	}
	if c.Model != "" {
		m.model = c.Model
	}
	m.status = fmt.Sprintf("Resumed %q", c.Title)
	m.refreshTranscript()
}

func (m Model) Init() tea.Cmd {
	if m.mode == ModeAPIKey {
		return textinput.Blink
	}
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

		switch m.mode {
		case ModeHelp:
			return m.handleHelpMode(msg)
		case ModeAPIKey:
			return m.handleAPIKeyMode(msg)
		case ModeSettings:
			return m.handleSettingsMode(msg)
		}
		return m.handleChatMode(msg)

	case spinner.TickMsg:
		if !m.streaming {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case streamEventMsg:
		return m.handleStreamEvent(msg.event)

	case completionMsg:
		if msg.err != nil {
			return m.finishTurn("", msg.err)
		}
		return m.finishTurn(msg.reply.Content, nil)

	case statusMsg:
		m.status = string(msg)
		return m, nil
	}

	// Cursor blink and other component messages.
	var cmd tea.Cmd
	if m.mode == ModeAPIKey {
		m.keyInput, cmd = m.keyInput.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

func (m Model) handleChatMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		return m.send()
	case "esc":
		if m.streaming && m.cancel != nil {
			m.cancelled = true
			m.cancel()
			m.status = "Cancelling..."
		}
		return m, nil
	case "ctrl+n":
		return m.cycleModel(openrouter.NextModel)
	case "ctrl+p":
		return m.cycleModel(openrouter.PrevModel)
	case "ctrl+s":
		if m.streaming {
			m.status = "Settings are unavailable while a reply is streaming"
			return m, nil
		}
		m.mode = ModeSettings
		m.settingsCursor = settingTemperature
		m.input.Blur()
		return m, nil
	case "ctrl+l":
		if m.streaming {
			return m, nil
		}
		m.turns = nil
		m.error = ""
		m.conv = history.NewConversation(m.model)
		m.status = "Chat cleared"
		m.refreshTranscript()
		return m, nil
	case "ctrl+y":
		return m.copyLastReply()
	case "f1":
		m.prevMode = m.mode
		m.mode = ModeHelp
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHelpMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "f1", "q":
		m.mode = m.prevMode
	}
	return m, nil
}

func (m Model) handleAPIKeyMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		token := strings.TrimSpace(m.keyInput.Value())
		if err := validation.ValidateAPIKey(token); err != nil {
			m.error = err.Error()
			return m, nil
		}
		if err := m.store.Save(token); err != nil {
			m.logger.Error("saving API key failed", "error", err)
			m.error = fmt.Sprintf("Failed to save API key: %v", err)
			return m, nil
		}
		m.keyInput.Reset()
		m.keyInput.Blur()
		m.error = ""
		m.mode = ModeChat
		m.status = "✓ API key saved"
		m.input.Focus()
		return m, textarea.Blink
	case "esc":
		if m.store.Has() {
			m.keyInput.Reset()
			m.keyInput.Blur()
			m.error = ""
			m.mode = ModeChat
			m.input.Focus()
			return m, textarea.Blink
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	return m, cmd
}

func (m Model) handleSettingsMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.settingsCursor = (m.settingsCursor + settingCount - 1) % settingCount
	case "down", "j", "tab":
		m.settingsCursor = (m.settingsCursor + 1) % settingCount
	case "left", "h", "-":
		if m.settingsCursor == settingTemperature {
			m.config.Temperature = stepTemperature(m.config.Temperature, -temperatureStep)
		}
	case "right", "l", "+":
		if m.settingsCursor == settingTemperature {
			m.config.Temperature = stepTemperature(m.config.Temperature, temperatureStep)
		}
	case "enter":
		switch m.settingsCursor {
		case settingChangeKey:
			m.enterAPIKeyMode("Enter a new OpenRouter API key")
			return m, textinput.Blink
		case settingSignOut:
			if err := m.store.Clear(); err != nil {
				m.logger.Error("clearing API key failed", "error", err)
				m.error = fmt.Sprintf("Failed to sign out: %v", err)
				return m, nil
			}
			m.enterAPIKeyMode("Signed out. Enter an API key to continue")
			return m, textinput.Blink
		}
	case "esc", "ctrl+s", "q":
		m.mode = ModeChat
		m.input.Focus()
		if err := m.saveConfig(m.config); err != nil {
			m.logger.Warn("saving settings failed", "error", err)
			m.status = fmt.Sprintf("Temperature: %.1f (config save failed)", m.config.Temperature)
		} else {
			m.status = fmt.Sprintf("Temperature: %.1f", m.config.Temperature)
		}
		return m, textarea.Blink
	}
	return m, nil
}

func (m *Model) enterAPIKeyMode(status string) {
	m.mode = ModeAPIKey
	m.input.Blur()
	m.keyInput.Reset()
	m.keyInput.Focus()
	m.status = status
}

// stepTemperature moves t by delta on the 0.1 grid, clamped to [0, 1].
func stepTemperature(t, delta float64) float64 {
	t = math.Round((t+delta)*10) / 10
	return math.Max(0, math.Min(1, t))
}

func (m Model) cycleModel(step func(string) string) (tea.Model, tea.Cmd) {
	if m.streaming {
		m.status = "The model can't change while a reply is streaming"
		return m, nil
	}
	m.model = step(m.model)
	m.config.Model = m.model
	m.conv.Model = m.model

	name := openrouter.DisplayName(m.model)
	if err := m.saveConfig(m.config); err != nil {
		m.logger.Warn("saving model choice failed", "error", err)
		m.status = fmt.Sprintf("Model: %s (config save failed)", name)
	} else {
		m.status = fmt.Sprintf("Model: %s", name)
	}
	return m, nil
}

func (m Model) copyLastReply() (tea.Model, tea.Cmd) {
	reply := m.lastReply()
	if reply == "" {
		m.status = "Nothing to copy yet"
		return m, nil
	}
	if err := clipboard.Copy(reply); err != nil {
		m.status = fmt.Sprintf("✗ Copy failed: %v", err)
		return m, nil
	}
	m.status = "✓ Copied to clipboard"
	return m, nil
}

func (m Model) lastReply() string {
	for i := len(m.turns) - 1; i >= 0; i-- {
		t := m.turns[i]
		if t.msg.Role == openrouter.RoleAssistant && !t.failed {
			return t.msg.Content
		}
	}
	return ""
}

// send starts a turn with the text in the input box.
func (m Model) send() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if m.streaming || text == "" {
		return m, nil
	}
	if err := validation.ValidateTextInput(text); err != nil {
		m.error = err.Error()
		return m, nil
	}
	if !m.store.Has() {
		m.enterAPIKeyMode("Enter your OpenRouter API key to start chatting")
		return m, textinput.Blink
	}

	userMsg := openrouter.UserMessage(text)
	m.input.Reset()
	m.error = ""
	m.turns = append(m.turns, turn{msg: userMsg})
	m.conv.Append(userMsg)

	req := m.request()
	ctx, cancel := createTimeoutContext(m.config)
	m.cancel = cancel
	m.streaming = true
	m.cancelled = false
	m.partial = ""
	m.status = "Thinking..."
	m.refreshTranscript()

	m.logger.Debug("sending turn", "model", req.Model, "messages", len(req.Messages), "stream", m.config.Stream)

	if !m.config.Stream {
		return m, tea.Batch(m.spinner.Tick, complete(ctx, m.chat, req))
	}
	m.events = m.chat.StreamEvents(ctx, req)
	return m, tea.Batch(m.spinner.Tick, waitForEvent(m.events))
}

// request builds the completion request for the current transcript.
func (m Model) request() openrouter.CompletionRequest {
	var msgs []openrouter.Message
	if prompt := strings.TrimSpace(m.config.SystemPrompt); prompt != "" {
		msgs = append(msgs, openrouter.SystemMessage(prompt))
	}
	for _, t := range m.turns {
		if !t.failed {
			msgs = append(msgs, t.msg)
		}
	}
	return openrouter.CompletionRequest{
		Model:       m.model,
		Messages:    msgs,
		Temperature: openrouter.Float(m.config.Temperature),
		TopP:        openrouter.Float(m.config.TopP),
		MaxTokens:   openrouter.Int(m.config.MaxTokens),
	}
}

// createTimeoutContext bounds one turn by request_timeout_seconds.
func createTimeoutContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	timeoutSeconds := cfg.RequestTimeoutSeconds
	if timeoutSeconds <= 0 {
		timeoutSeconds = defaultTimeoutSeconds
	}
	return context.WithTimeout(context.Background(), time.Duration(timeoutSeconds)*time.Second)
}

// waitForEvent delivers the next stream event as a tea.Msg. It is re-issued
// after every Delta until the terminal event arrives.
func waitForEvent(events <-chan openrouter.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamEventMsg{event: openrouter.Failed{Err: errors.New("stream closed unexpectedly")}}
		}
		return streamEventMsg{event: ev}
	}
}

func complete(ctx context.Context, chat openrouter.Chatter, req openrouter.CompletionRequest) tea.Cmd {
	return func() tea.Msg {
		reply, err := chat.Complete(ctx, req)
		return completionMsg{reply: reply, err: err}
	}
}

func (m Model) handleStreamEvent(ev openrouter.Event) (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	switch ev := ev.(type) {
	case openrouter.Delta:
		m.partial += ev.Text
		m.status = "Receiving..."
		m.refreshTranscript()
		return m, waitForEvent(m.events)
	case openrouter.Completed:
		return m.finishTurn(ev.Text, nil)
	case openrouter.Failed:
		return m.finishTurn("", ev.Err)
	}
	return m, nil
}

// finishTurn records the outcome of the running turn.
func (m Model) finishTurn(text string, err error) (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	partial := m.partial
	m.streaming = false
	m.partial = ""
	m.events = nil

	switch {
	case err == nil:
		m.addReply(text)
		m.status = "✓ Done"
		if m.config.AutoCopy {
			if copyErr := clipboard.Copy(text); copyErr == nil {
				m.status = "✓ Done (copied)"
			}
		}
	case m.cancelled:
		if partial != "" {
			m.addReply(partial)
		}
		m.status = "Cancelled"
	default:
		m.logger.Error("completion failed", "model", m.model, "error", err)
		notice := fmt.Sprintf("Error: %s. Please try again or check your API key.", err)
		m.turns = append(m.turns, turn{msg: openrouter.AssistantMessage(notice), failed: true})
		m.status = "✗ Error"
		if errors.Is(err, openrouter.ErrMissingCredential) {
			m.enterAPIKeyMode("API key not found. Enter your OpenRouter API key")
		}
	}
	m.cancelled = false
	m.refreshTranscript()
	return m, nil
}

func (m *Model) addReply(text string) {
	reply := openrouter.AssistantMessage(text)
	m.turns = append(m.turns, turn{msg: reply})
	m.conv.Append(reply)
	if m.history == nil {
		return
	}
	if err := m.history.Save(m.conv); err != nil {
		m.logger.Warn("saving conversation failed", "id", m.conv.ID, "error", err)
	}
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	contentWidth := width - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	m.input.SetWidth(contentWidth)

	vpHeight := height - inputHeight - 6
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Width = contentWidth
	m.viewport.Height = vpHeight
	m.markdown.SetWidth(contentWidth - 2)
	m.refreshTranscript()
}

func (m *Model) refreshTranscript() {
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func Run(deps Deps, resume *history.Conversation) error {
	model, err := NewModel(deps)
	if err != nil {
		return fmt.Errorf("failed to create model: %w", err)
	}
	if resume != nil {
		model.Resume(resume)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("program error: %w", err)
	}
	if fm, ok := final.(Model); ok && fm.cancel != nil {
		fm.cancel()
	}
	return nil
}
