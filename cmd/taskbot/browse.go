package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/store"
)

// browseStore is the store surface the browser needs.
type browseStore interface {
	ListAll(ctx context.Context) ([]*store.Task, error)
	Delete(ctx context.Context, id string) (bool, error)
}

type tasksLoadedMsg struct {
	tasks []*store.Task
	err   error
}

type taskDeletedMsg struct {
	id  string
	err error
}

type tickMsg time.Time

const browseRefresh = 5 * time.Second

var (
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7eb8da")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	panelStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3d4450")).
			Padding(0, 1)
)

// browseModel is an interactive list of every stored task.
type browseModel struct {
	store  browseStore
	tasks  []*store.Task
	cursor int
	status string
	err    error
}

func newBrowseModel(s browseStore) browseModel {
	return browseModel{store: s}
}

func (m browseModel) Init() tea.Cmd {
	return tea.Batch(m.load(), tick())
}

func (m browseModel) load() tea.Cmd {
	return func() tea.Msg {
		tasks, err := m.store.ListAll(context.Background())
		return tasksLoadedMsg{tasks: tasks, err: err}
	}
}

func (m browseModel) remove(id string) tea.Cmd {
	return func() tea.Msg {
		deleted, err := m.store.Delete(context.Background(), id)
		if err == nil && !deleted {
			err = fmt.Errorf("task %s no longer exists", id)
		}
		return taskDeletedMsg{id: id, err: err}
	}
}

func tick() tea.Cmd {
	return tea.Tick(browseRefresh, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case "r":
			m.status = "refreshing"
			return m, m.load()
		case "d", "delete", "x":
			if len(m.tasks) == 0 {
				return m, nil
			}
			id := m.tasks[m.cursor].ID
			m.status = "deleting " + id
			return m, m.remove(id)
		}

	case tasksLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.tasks = msg.tasks
			m.status = ""
		}
		if m.cursor >= len(m.tasks) {
			m.cursor = max(len(m.tasks)-1, 0)
		}

	case taskDeletedMsg:
		if msg.err != nil {
			m.status = "delete failed: " + msg.err.Error()
			return m, m.load()
		}
		m.status = "deleted " + msg.id
		return m, m.load()

	case tickMsg:
		return m, tea.Batch(m.load(), tick())
	}
	return m, nil
}

func (m browseModel) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Tasks (%d)", len(m.tasks))))
	b.WriteString("\n\n")

	if len(m.tasks) == 0 {
		b.WriteString(helpStyle.Render("No tasks yet."))
		b.WriteString("\n")
	}
	for i, t := range m.tasks {
		line := fmt.Sprintf("%s  %s", senderStyle.Render(t.SenderID), t.Text)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> ") + line)
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(warnStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	} else if m.status != "" {
		b.WriteString(helpStyle.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("↑/↓ move · d delete · r refresh · q quit"))
	return panelStyle.Render(b.String())
}

func newBrowseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse and delete tasks interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			logging.Suppress()
			_, err = tea.NewProgram(newBrowseModel(s), tea.WithAltScreen()).Run()
			return err
		},
	}
}
