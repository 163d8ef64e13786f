// Package console is a local chat window onto the bot. Lines typed here
// go through the same command router as Twitch and Discord messages, with
// owner rights, and replies appear in a scrolling transcript.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/treasurebot/internal/bot"
	"github.com/Aman-CERP/treasurebot/internal/chat"
	"github.com/Aman-CERP/treasurebot/internal/ui"
)

// Platform is the platform name on console messages.
const Platform = "console"

// Config configures the console.
type Config struct {
	// User is the name shown for typed lines. Default: $USER or "you".
	User    string
	NoColor bool
	Input   io.Reader
	Output  io.Writer
}

// Console runs the interactive window.
type Console struct {
	handler chat.Handler
	cfg     Config
}

var _ chat.Connector = (*Console)(nil)

// New creates a Console feeding handler.
func New(handler chat.Handler, cfg Config) *Console {
	if cfg.User == "" {
		cfg.User = os.Getenv("USER")
	}
	if cfg.User == "" {
		cfg.User = "you"
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	return &Console{handler: handler, cfg: cfg}
}

// Name implements chat.Connector.
func (c *Console) Name() string { return Platform }

// Start runs the window until the user quits or ctx ends.
func (c *Console) Start(ctx context.Context) error {
	if !ui.IsTTY(c.cfg.Output) {
		return fmt.Errorf("console needs an interactive terminal")
	}

	m := newModel(ctx, c.handler, c.cfg.User, ui.GetStyles(c.cfg.NoColor || ui.DetectNoColor()))
	p := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(c.cfg.Input),
		tea.WithOutput(c.cfg.Output),
		tea.WithAltScreen(),
	)
	m.notify = p.Send

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// Message types for bubbletea.
type (
	replyMsg bot.Reply
	doneMsg  struct{ err error }
)

type line struct {
	at   time.Time
	from string
	text string
	bot  bool
}

// model is the bubbletea model for the console.
type model struct {
	ctx     context.Context
	handler chat.Handler
	user    string
	notify  func(tea.Msg)

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model
	styles   ui.Styles

	lines   []line
	pending int
	ready   bool
	width   int
	now     func() time.Time
}

func newModel(ctx context.Context, handler chat.Handler, user string, styles ui.Styles) *model {
	ti := textinput.New()
	ti.Placeholder = "!find lucky cat"
	ti.Prompt = "> "
	ti.CharLimit = 200
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ui.ColorGold))

	return &model{
		ctx:      ctx,
		handler:  handler,
		user:     user,
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  s,
		styles:   styles,
		width:    80,
		now:      time.Now,
	}
}

// Init implements tea.Model.
func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 3)
		m.input.Width = max(msg.Width-4, 10)
		m.ready = true
		m.refreshTranscript()
		return m, nil

	case replyMsg:
		if text := bot.Reply(msg).Text(); text != "" {
			m.appendLine(line{at: m.now(), from: "TreasureBot", text: text, bot: true})
		}
		return m, nil

	case doneMsg:
		m.pending = max(m.pending-1, 0)
		if msg.err != nil {
			m.appendLine(line{at: m.now(), from: "error", text: msg.err.Error(), bot: true})
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit echoes the typed line and hands it to the router. Replies
// arrive through notify while the command runs.
func (m *model) submit() tea.Cmd {
	text := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if text == "" {
		return nil
	}

	m.appendLine(line{at: m.now(), from: m.user, text: text})
	m.pending++

	msg := bot.Message{
		Platform: Platform,
		UserID:   m.user,
		UserName: m.user,
		Channel:  Platform,
		Text:     text,
		Owner:    true,
	}
	ctx, handler, notify := m.ctx, m.handler, m.notify
	return func() tea.Msg {
		err := handler.Handle(ctx, msg, func(r bot.Reply) error {
			if notify != nil {
				notify(replyMsg(r))
			}
			return nil
		})
		return doneMsg{err: err}
	}
}

func (m *model) appendLine(l line) {
	m.lines = append(m.lines, l)
	m.refreshTranscript()
}

func (m *model) refreshTranscript() {
	m.viewport.SetContent(m.transcript())
	m.viewport.GotoBottom()
}

// transcript renders every line, wrapped to the window width.
func (m *model) transcript() string {
	if len(m.lines) == 0 {
		return m.styles.Dim.Render("Type !help for commands. Esc quits.")
	}
	wrap := lipgloss.NewStyle().Width(max(m.width, 20))
	var sb strings.Builder
	for i, l := range m.lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		name := m.styles.Accent.Render(l.from)
		if l.bot {
			name = m.styles.Header.Render(l.from)
		}
		stamp := m.styles.Label.Render(l.at.Format(time.TimeOnly))
		sb.WriteString(wrap.Render(fmt.Sprintf("%s %s: %s", stamp, name, l.text)))
	}
	return sb.String()
}

// View implements tea.Model.
func (m *model) View() string {
	status := m.styles.Dim.Render("Esc to quit")
	if m.pending > 0 {
		status = m.spinner.View() + " " + m.styles.Label.Render("working...")
	}
	header := m.styles.Header.Render("TreasureBot console")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), status)
}
