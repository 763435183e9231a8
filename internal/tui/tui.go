package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tatianab/hero-campaign/internal/campaign"
	"github.com/tatianab/hero-campaign/internal/models"
	"github.com/tatianab/hero-campaign/internal/session"
)

type sessionState int

const (
	statePlaying sessionState = iota
	stateConfirmReset
	stateError
)

// banterDelay spaces out unprompted party replies.
const banterDelay = 1500 * time.Millisecond

type model struct {
	state     sessionState
	session   *session.Session
	textInput textinput.Model
	viewport  viewport.Model
	err       error
	notice    string
	width     int
	height    int
	busy      bool
}

var (
	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			Bold(true).
			PaddingLeft(1)

	gameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	stateStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	statusMarks = map[campaign.Status]string{
		campaign.Locked:          "[ ]",
		campaign.Unlocked:        "[>]",
		campaign.Completed:       "[x]",
		campaign.BranchLockedOut: "[-]",
	}
)

func NewModel(sess *session.Session) model {
	ti := textinput.New()
	ti.Placeholder = "Say something, or /help"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	return model{
		state:     statePlaying,
		session:   sess,
		textInput: ti,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

type replyMsg struct {
	area campaign.NodeID
	next *session.FollowUp
}

type followUpMsg struct {
	next session.FollowUp
}

type unlockedMsg struct {
	result campaign.UnlockResult
	err    error
}

type errMsg struct {
	err error
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			if m.state == stateConfirmReset {
				m.state = statePlaying
				m.notice = "Reset cancelled."
				return m, nil
			}
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textInput.Value())
			m.textInput.Reset()
			switch m.state {
			case stateConfirmReset:
				return m.confirmReset(input)
			case statePlaying:
				return m.handleInput(input)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		logWidth := int(float64(msg.Width) * 0.70)
		if m.viewport.Width == 0 {
			m.viewport = viewport.New(logWidth, msg.Height-7)
		}
		m.viewport.Width = logWidth
		m.viewport.Height = msg.Height - 7
		m.refresh()

	case replyMsg:
		m.refresh()
		if msg.next != nil {
			next := *msg.next
			return m, tea.Tick(banterDelay, func(time.Time) tea.Msg { return followUpMsg{next} })
		}
		return m, nil

	case followUpMsg:
		return m, m.continueBanter(msg.next)

	case unlockedMsg:
		m.busy = false
		if msg.err != nil {
			var lockout *campaign.LockoutError
			if errors.As(msg.err, &lockout) {
				m.notice = lockout.Error()
			} else {
				m.notice = msg.err.Error()
			}
			return m, nil
		}
		m.notice = m.describeUnlock(msg.result)
		m.refresh()
		return m, nil

	case errMsg:
		m.err = msg.err
		m.state = stateError
		return m, nil
	}

	if m.state != stateError {
		m.textInput, cmd = m.textInput.Update(msg)
	}
	return m, cmd
}

func (m model) handleInput(input string) (tea.Model, tea.Cmd) {
	if input == "" {
		return m, nil
	}
	m.notice = ""
	if !strings.HasPrefix(input, "/") {
		cmd := m.send(input)
		return m, cmd
	}

	command, arg, _ := strings.Cut(input[1:], " ")
	arg = strings.TrimSpace(arg)
	switch command {
	case "quit":
		return m, tea.Quit
	case "help":
		m.notice = "Commands: /go <area>, /unlock <area>, /reset, /quit. Anything else is said aloud."
	case "go":
		id, ok := resolveArea(m.session.Layout(), arg)
		if !ok {
			m.notice = fmt.Sprintf("Unknown area %q.", arg)
			return m, nil
		}
		if err := m.session.MarkActive(context.Background(), id); err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.refresh()
	case "unlock":
		id, ok := resolveArea(m.session.Layout(), arg)
		if !ok {
			m.notice = fmt.Sprintf("Unknown area %q.", arg)
			return m, nil
		}
		if m.busy {
			m.notice = "Still recording the last area, please wait."
			return m, nil
		}
		if m.session.Pending(m.session.Active()) {
			m.notice = "Wait for the reply before moving on."
			return m, nil
		}
		m.busy = true
		m.notice = "Moving on..."
		return m, m.unlock(id)
	case "reset":
		m.state = stateConfirmReset
		m.textInput.Placeholder = "Type 'yes' to erase everything"
	default:
		m.notice = fmt.Sprintf("Unknown command /%s. Try /help.", command)
	}
	return m, nil
}

func (m model) confirmReset(input string) (tea.Model, tea.Cmd) {
	m.state = statePlaying
	m.textInput.Placeholder = "Say something, or /help"
	if err := m.session.Reset(context.Background(), strings.EqualFold(input, "yes")); err != nil {
		if errors.Is(err, session.ErrResetNotConfirmed) {
			m.notice = "Reset cancelled."
			return m, nil
		}
		return m, func() tea.Msg { return errMsg{err} }
	}
	m.notice = "The campaign has been reset."
	m.refresh()
	return m, nil
}

// send places the user's message synchronously so the log shows it at once;
// the reply arrives as a replyMsg.
func (m *model) send(text string) tea.Cmd {
	area := m.session.Active()
	turn, err := m.session.Submit(context.Background(), area, text)
	if err != nil {
		m.notice = err.Error()
		return nil
	}
	m.refresh()
	return func() tea.Msg {
		_, next := m.session.Respond(context.Background(), turn)
		return replyMsg{area: area, next: next}
	}
}

func (m model) continueBanter(f session.FollowUp) tea.Cmd {
	turn, err := m.session.Schedule(context.Background(), f)
	if err != nil {
		return nil
	}
	return tea.Sequence(
		func() tea.Msg { return replyMsg{area: f.Area} },
		func() tea.Msg {
			_, next := m.session.Respond(context.Background(), turn)
			return replyMsg{area: f.Area, next: next}
		},
	)
}

func (m model) unlock(id campaign.NodeID) tea.Cmd {
	return func() tea.Msg {
		res, err := m.session.Unlock(context.Background(), id)
		return unlockedMsg{result: res, err: err}
	}
}

func (m model) describeUnlock(res campaign.UnlockResult) string {
	layout := m.session.Layout()
	if !res.Changed {
		return fmt.Sprintf("%s is already open.", layout.Name(res.Node))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s unlocked.", layout.Name(res.Node))
	for _, id := range res.LockedOut {
		fmt.Fprintf(&b, " %s is now out of reach for good.", layout.Name(id))
	}
	return b.String()
}

func (m *model) refresh() {
	if m.viewport.Width == 0 {
		return
	}
	m.viewport.SetContent(m.renderLog())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var s string

	switch m.state {
	case statePlaying, stateConfirmReset:
		mainView := lipgloss.JoinHorizontal(lipgloss.Top,
			m.viewport.View(),
			m.renderState(),
		)
		help := helpStyle.Render("Commands: /go <area>, /unlock <area>, /reset, /quit, or just talk.")
		if m.state == stateConfirmReset {
			help = noticeStyle.Render("This permanently erases all progress, conversations and summaries. Type 'yes' to confirm, anything else cancels.")
		}
		notice := ""
		if m.notice != "" {
			notice = "\n" + noticeStyle.Render(m.notice)
		}
		s = lipgloss.JoinVertical(lipgloss.Left,
			mainView,
			notice,
			"\n"+m.textInput.View(),
			"\n"+help,
		)

	case stateError:
		s = fmt.Sprintf("\n  Error: %v\n\nPress Esc to quit.", m.err)
	}

	return "\n" + s + "\n"
}

func (m model) renderState() string {
	view := m.session.View()

	var b strings.Builder
	b.WriteString(titleStyle.Render(strings.ToUpper(view.Title)) + "\n")
	for _, n := range view.Nodes {
		line := fmt.Sprintf("%s %s", statusMarks[n.Status], n.Name)
		if n.Active {
			line = speakerStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	b.WriteString("\n" + titleStyle.Render("PARTY") + "\n")
	if len(view.Party) == 0 {
		b.WriteString("(no heroes; the narrator answers)\n")
	}
	for _, h := range view.Party {
		b.WriteString(partyLine(h) + "\n")
	}

	stateWidth := int(float64(m.width) * 0.28)
	return stateStyle.Width(stateWidth).Height(m.viewport.Height).Render(b.String())
}

func partyLine(h models.Hero) string {
	if d := h.Describe(); d != "" {
		return fmt.Sprintf("- %s (%s)", h.Name, d)
	}
	return "- " + h.Name
}

func (m model) renderLog() string {
	active := m.session.Active()
	layout := m.session.Layout()
	node, _ := layout.Node(active)
	width := m.viewport.Width

	var b strings.Builder
	b.WriteString(gameStyle.Bold(true).Render(node.Name) + "\n\n")
	b.WriteString(gameStyle.Width(width).Render(node.Scene) + "\n\n")
	for _, msg := range m.session.Messages(active) {
		if msg.Sender == models.SenderUser {
			b.WriteString(userStyle.Width(width).Render("> "+msg.Text) + "\n\n")
			continue
		}
		b.WriteString(speakerStyle.Render(msg.Speaker) + "\n")
		b.WriteString(gameStyle.Width(width).Render(msg.Text) + "\n\n")
	}
	return b.String()
}

// resolveArea accepts an area id or display name.
func resolveArea(layout *campaign.Layout, arg string) (campaign.NodeID, bool) {
	arg = strings.TrimSpace(arg)
	for _, id := range layout.Order() {
		if strings.EqualFold(string(id), arg) || strings.EqualFold(layout.Name(id), arg) {
			return id, true
		}
	}
	return "", false
}

func Run(sess *session.Session) error {
	p := tea.NewProgram(NewModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
