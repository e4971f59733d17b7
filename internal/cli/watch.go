package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/netweave/netweave/pkg/orchestrator"
)

const watchPollInterval = 2 * time.Second

var (
	watchStatusStyle = map[orchestrator.Status]lipgloss.Style{
		orchestrator.StatusOK:      lipgloss.NewStyle().Foreground(colorGreen),
		orchestrator.StatusWaiting: lipgloss.NewStyle().Foreground(colorYellow),
		orchestrator.StatusFailed:  lipgloss.NewStyle().Foreground(colorRed),
		orchestrator.StatusUnknown: lipgloss.NewStyle().Foreground(colorGray),
	}
	watchFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// watchSlice polls the slice's status in a bubbletea TUI until it settles
// (OK or Failed) or the user quits.
func watchSlice(ctx context.Context, client *orchestrator.Client, sliceName string) error {
	m := watchModel{
		ctx:    ctx,
		client: client,
		slice:  sliceName,
		status: orchestrator.StatusUnknown,
	}
	final, err := tea.NewProgram(m, tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	fm := final.(watchModel)
	if fm.err != nil {
		return fm.err
	}
	if fm.status == orchestrator.StatusFailed {
		return fmt.Errorf("slice %s failed", sliceName)
	}
	return nil
}

type watchTickMsg struct{}

type watchStatusMsg struct {
	status orchestrator.Status
	err    error
}

// watchModel is the bubbletea model for slice status polling.
type watchModel struct {
	ctx    context.Context
	client *orchestrator.Client
	slice  string
	status orchestrator.Status
	polls  int
	frame  int
	err    error
	done   bool
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), watchTick())
}

func watchTick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.Status(m.ctx, m.slice)
		return watchStatusMsg{status: status, err: err}
	}
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
	case watchTickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, watchTick()
	case watchStatusMsg:
		m.polls++
		if msg.err != nil {
			m.err = msg.err
			m.done = true
			return m, tea.Quit
		}
		m.status = msg.status
		if m.status == orchestrator.StatusOK || m.status == orchestrator.StatusFailed {
			m.done = true
			return m, tea.Quit
		}
		return m, tea.Tick(watchPollInterval, func(time.Time) tea.Msg {
			return m.poll()()
		})
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Slice " + m.slice))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("q quit"))
	b.WriteString("\n\n")

	style, ok := watchStatusStyle[m.status]
	if !ok {
		style = StyleDim
	}
	frame := watchFrames[m.frame%len(watchFrames)]
	if m.done {
		frame = " "
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n",
		styleIconSpinner.Render(frame),
		style.Render(string(m.status)),
		StyleDim.Render(fmt.Sprintf("(%d polls)", m.polls))))

	if m.err != nil {
		b.WriteString("\n" + styleIconError.Render(iconError) + " " + m.err.Error() + "\n")
	}
	return b.String()
}
