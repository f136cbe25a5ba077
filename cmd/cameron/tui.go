package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/cameroncode/cameroncode/internal/claude"
)

// thinkingVerbs rotate in the status line while a turn is in flight.
var thinkingVerbs = []string{
	"Pondering",
	"Contemplating",
	"Mulling over",
	"Considering",
	"Reasoning",
	"Analyzing",
	"Processing",
	"Cogitating",
	"Deliberating",
	"Ruminating",
}

// thinkingPreviewLimit truncates thinking blocks shown in the chat.
const thinkingPreviewLimit = 200

// welcomeBanner greets the user when the TUI starts.
const welcomeBanner = "Welcome to **Cameron Code**!\n\n" +
	"A custom Claude Code TUI with:\n" +
	"- Custom MCP tools (`cameron_search`, `cameron_time`)\n" +
	"- Audit logging & hooks\n" +
	"- Slash command support\n\n" +
	"Type a message or use a slash command."

// chatEntry is a rendered chat line in the conversation pane.
type chatEntry struct {
	// Role labels the message origin (user, assistant, system, tool, thinking).
	Role string
	// Content is the message text.
	Content string
}

// chatEntryMsg delivers a new chat entry from the stream goroutine.
type chatEntryMsg struct {
	Entry chatEntry
}

// turnDoneMsg signals that the current turn's result arrived.
type turnDoneMsg struct {
	// CostUSD is the turn's reported cost.
	CostUSD float64
	// IsError marks a failed turn.
	IsError bool
	// Result carries the failure text for errored turns.
	Result string
}

// turnErrorMsg reports a transport-level error during a turn.
type turnErrorMsg struct {
	Err error
}

// verbTickMsg advances the rotating thinking verb.
type verbTickMsg struct{}

// tuiModel drives the interactive chat UI.
type tuiModel struct {
	// client is the live session.
	client *claude.Client
	// initialPrompt is submitted automatically on startup when non-empty.
	initialPrompt string
	// chatEntries holds the rendered conversation.
	chatEntries []chatEntry
	// chatView renders the conversation history.
	chatView viewport.Model
	// input collects the next prompt.
	input textarea.Model
	// markdownRenderer formats non-user output when available.
	markdownRenderer *glamour.TermRenderer
	// statusText is the bottom status line.
	statusText string
	// totalCost accumulates reported turn costs.
	totalCost float64
	// running marks an in-flight turn.
	running bool
	// verbIndex selects the active thinking verb.
	verbIndex int
	// streamCh carries turn updates into the update loop.
	streamCh chan tea.Msg
	// cancel aborts the in-flight receive loop.
	cancel context.CancelFunc
	// width and height track the terminal size.
	width  int
	height int
	// quitting marks a user-requested exit.
	quitting bool
}

// runTUI starts the full-screen chat UI on a connected client.
func runTUI(client *claude.Client, initialPrompt string) error {
	if !term.IsTerminal(int(0)) || !term.IsTerminal(int(1)) {
		return errors.New("interactive mode requires a TTY; use --print")
	}
	model := newTUIModel(client, initialPrompt)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

// newTUIModel constructs the initial UI state, seeding the welcome banner and
// the slash commands the CLI advertised during connect.
func newTUIModel(client *claude.Client, initialPrompt string) *tuiModel {
	input := textarea.New()
	input.Placeholder = "Ask Cameron anything..."
	input.Focus()
	input.CharLimit = 0
	input.Prompt = "> "
	input.SetHeight(3)
	input.SetWidth(20)

	chatView := viewport.New(20, 10)

	var renderer *glamour.TermRenderer
	if glam, err := glamour.NewTermRenderer(glamour.WithAutoStyle()); err == nil {
		renderer = glam
	}

	model := &tuiModel{
		client:           client,
		initialPrompt:    strings.TrimSpace(initialPrompt),
		chatView:         chatView,
		input:            input,
		markdownRenderer: renderer,
		statusText:       "Ready",
	}
	model.appendEntry(chatEntry{Role: "system", Content: welcomeBanner})
	if listing := commandListing(client.Commands()); listing != "" {
		model.appendEntry(chatEntry{Role: "system", Content: listing})
	}
	model.refreshChat()
	return model
}

// commandListing summarizes the first few slash commands the CLI reported.
func commandListing(commands []claude.CommandInfo) string {
	if len(commands) == 0 {
		return ""
	}
	if len(commands) > 10 {
		commands = commands[:10]
	}
	names := make([]string, len(commands))
	for i, command := range commands {
		names[i] = fmt.Sprintf("`/%s`", command.Name)
	}
	return "Available commands: " + strings.Join(names, ", ")
}

// Init starts the cursor blink and submits the initial prompt when present.
func (m *tuiModel) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.initialPrompt != "" {
		prompt := m.initialPrompt
		m.initialPrompt = ""
		cmds = append(cmds, m.beginTurn(prompt)...)
	}
	return tea.Batch(cmds...)
}

// Update handles UI events and turn updates.
func (m *tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.applyWindowSize(typed)
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(typed)
	case chatEntryMsg:
		m.appendEntry(typed.Entry)
		m.refreshChat()
		return m, m.listenStream()
	case turnDoneMsg:
		m.finishTurn(typed)
		return m, nil
	case turnErrorMsg:
		m.finishTurnError(typed.Err)
		return m, nil
	case verbTickMsg:
		if !m.running {
			return m, nil
		}
		m.verbIndex = (m.verbIndex + 1) % len(thinkingVerbs)
		m.statusText = thinkingVerbs[m.verbIndex] + "..."
		return m, m.tickVerb()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the full layout.
func (m *tuiModel) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Initializing..."
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.renderChat(),
		m.renderInput(),
		m.renderStatus(),
	)
}

// handleKey routes keyboard input.
func (m *tuiModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "ctrl+l":
		m.chatEntries = nil
		m.appendEntry(chatEntry{Role: "system", Content: "Chat cleared. Start fresh!"})
		m.refreshChat()
		return m, nil
	case "esc":
		if m.running {
			return m, m.interruptTurn()
		}
		return m, nil
	case "pgup":
		m.chatView.LineUp(10)
		return m, nil
	case "pgdown":
		m.chatView.LineDown(10)
		return m, nil
	}

	if key.Type == tea.KeyEnter {
		if key.Alt {
			m.input.InsertString("\n")
			return m, nil
		}
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(key)
	return m, cmd
}

// submitInput sends the typed prompt as a new turn.
func (m *tuiModel) submitInput() (tea.Model, tea.Cmd) {
	if m.running {
		m.statusText = "Wait for the current response or cancel with Esc."
		return m, nil
	}
	prompt := strings.TrimSpace(m.input.Value())
	if prompt == "" {
		return m, nil
	}
	m.input.SetValue("")
	return m, tea.Batch(m.beginTurn(prompt)...)
}

// beginTurn appends the user entry and starts the streaming commands.
func (m *tuiModel) beginTurn(prompt string) []tea.Cmd {
	m.appendEntry(chatEntry{Role: "user", Content: prompt})
	m.refreshChat()

	m.running = true
	m.verbIndex = 0
	m.statusText = thinkingVerbs[0] + "..."
	m.streamCh = make(chan tea.Msg, 64)
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	return []tea.Cmd{m.startTurn(ctx, prompt), m.listenStream(), m.tickVerb()}
}

// startTurn runs the query and forwards stream updates into the UI loop.
func (m *tuiModel) startTurn(ctx context.Context, prompt string) tea.Cmd {
	client := m.client
	streamCh := m.streamCh

	return func() tea.Msg {
		defer close(streamCh)

		if err := client.Query(prompt); err != nil {
			streamCh <- turnErrorMsg{Err: err}
			return nil
		}

		var text strings.Builder
		for message := range client.ReceiveResponse(ctx) {
			switch typed := message.(type) {
			case claude.AssistantMessage:
				for _, block := range typed.Content {
					switch b := block.(type) {
					case claude.TextBlock:
						text.WriteString(b.Text)
					case claude.ToolUseBlock:
						streamCh <- chatEntryMsg{Entry: chatEntry{
							Role:    "tool",
							Content: fmt.Sprintf("Using **%s**...", b.Name),
						}}
					case claude.ThinkingBlock:
						if preview := previewThinking(b.Thinking); preview != "" {
							streamCh <- chatEntryMsg{Entry: chatEntry{Role: "thinking", Content: preview}}
						}
					}
				}
			case claude.ResultMessage:
				if text.Len() > 0 {
					streamCh <- chatEntryMsg{Entry: chatEntry{Role: "assistant", Content: text.String()}}
					text.Reset()
				}
				streamCh <- turnDoneMsg{
					CostUSD: typed.TotalCostUSD,
					IsError: typed.IsError,
					Result:  typed.Result,
				}
				return nil
			}
		}

		if err := client.Err(); err != nil {
			streamCh <- turnErrorMsg{Err: err}
			return nil
		}
		streamCh <- turnErrorMsg{Err: errors.New("session ended unexpectedly")}
		return nil
	}
}

// listenStream waits for the next turn update.
func (m *tuiModel) listenStream() tea.Cmd {
	streamCh := m.streamCh
	if streamCh == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-streamCh
		if !ok {
			return nil
		}
		return msg
	}
}

// tickVerb schedules the next thinking verb rotation.
func (m *tuiModel) tickVerb() tea.Cmd {
	return tea.Tick(800*time.Millisecond, func(time.Time) tea.Msg {
		return verbTickMsg{}
	})
}

// interruptTurn asks the CLI to cancel the in-flight turn.
func (m *tuiModel) interruptTurn() tea.Cmd {
	client := m.client
	m.statusText = "Cancelling..."
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Interrupt(ctx); err != nil {
			return turnErrorMsg{Err: err}
		}
		return nil
	}
}

// finishTurn reconciles state after a completed turn.
func (m *tuiModel) finishTurn(done turnDoneMsg) {
	m.running = false
	m.cancel = nil
	m.streamCh = nil
	if done.IsError {
		m.appendEntry(chatEntry{Role: "system", Content: "**Error:** " + done.Result})
		m.statusText = "Error"
	} else {
		m.statusText = "Ready"
	}
	m.totalCost += done.CostUSD
	m.refreshChat()
}

// finishTurnError handles transport failures during a turn.
func (m *tuiModel) finishTurnError(err error) {
	m.running = false
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.streamCh = nil
	m.appendEntry(chatEntry{Role: "system", Content: fmt.Sprintf("**Error:** %v", err)})
	m.statusText = "Error"
	m.refreshChat()
}

// previewThinking truncates a thinking block for muted display.
func previewThinking(thinking string) string {
	thinking = strings.TrimSpace(thinking)
	if len(thinking) > thinkingPreviewLimit {
		return thinking[:thinkingPreviewLimit] + "..."
	}
	return thinking
}

// appendEntry adds a chat entry to the display list.
func (m *tuiModel) appendEntry(entry chatEntry) {
	m.chatEntries = append(m.chatEntries, entry)
}

// refreshChat rebuilds the viewport content and pins it to the bottom.
func (m *tuiModel) refreshChat() {
	var b strings.Builder
	for _, entry := range m.chatEntries {
		b.WriteString(m.renderEntry(entry))
		b.WriteString("\n")
	}
	m.chatView.SetContent(b.String())
	m.chatView.GotoBottom()
}

// renderEntry formats one chat entry with its role label.
func (m *tuiModel) renderEntry(entry chatEntry) string {
	label := entry.Role
	style := lipgloss.NewStyle().Bold(true)
	switch entry.Role {
	case "user":
		style = style.Foreground(lipgloss.Color("10"))
		label = "You"
	case "assistant":
		style = style.Foreground(lipgloss.Color("12"))
		label = "Cameron"
	case "system":
		style = style.Foreground(lipgloss.Color("3"))
		label = "System"
	case "tool":
		style = style.Foreground(lipgloss.Color("13"))
		label = "Tool"
	case "thinking":
		style = style.Foreground(lipgloss.Color("8")).Italic(true)
		label = "Thinking"
	}

	content := entry.Content
	if entry.Role != "user" && entry.Role != "thinking" {
		content = m.renderMarkdown(content)
	}
	return fmt.Sprintf("%s\n%s", style.Render(label+":"), strings.TrimRight(content, "\n"))
}

// renderMarkdown converts markdown into terminal output when possible.
func (m *tuiModel) renderMarkdown(content string) string {
	if m.markdownRenderer == nil {
		return content
	}
	rendered, err := m.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// applyWindowSize recalculates the layout for a new terminal size.
func (m *tuiModel) applyWindowSize(msg tea.WindowSizeMsg) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight := 1
	statusHeight := 1
	inputHeight := m.input.Height() + 2
	chatHeight := m.height - headerHeight - statusHeight - inputHeight
	if chatHeight < 4 {
		chatHeight = 4
	}

	m.chatView.Width = m.width - 2
	m.chatView.Height = chatHeight
	m.input.SetWidth(m.width - 4)

	if m.markdownRenderer != nil {
		if glam, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(m.chatView.Width),
		); err == nil {
			m.markdownRenderer = glam
		}
	}
	m.refreshChat()
}

// renderHeader builds the top line.
func (m *tuiModel) renderHeader() string {
	style := lipgloss.NewStyle().Bold(true)
	header := "Cameron Code"
	if m.running {
		header += " | running"
	}
	return style.Render(padRight(header, m.width))
}

// renderChat returns the conversation pane.
func (m *tuiModel) renderChat() string {
	return m.chatView.View()
}

// renderInput returns the input box rendering.
func (m *tuiModel) renderInput() string {
	style := lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(0, 1)
	return style.Render(m.input.View())
}

// renderStatus returns the bottom status line with the accumulated cost.
func (m *tuiModel) renderStatus() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	text := fmt.Sprintf("%s | $%.4f | Enter: send | Ctrl+L: clear | Esc: cancel | Ctrl+C: quit",
		m.statusText, m.totalCost)
	return style.Render(padRight(text, m.width))
}

// padRight pads a string with spaces to the target width.
func padRight(value string, width int) string {
	runes := []rune(value)
	if len(runes) >= width {
		return value
	}
	return value + strings.Repeat(" ", width-len(runes))
}
