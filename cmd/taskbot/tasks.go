package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7eb8da"))
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6e7681"))
	senderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#d4a054"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#7ec699"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#d48a8a"))
)

// openStore loads the config and opens the task store with logging quieted
// to warnings, so command output stays readable.
func openStore() (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg.Logging.Level = "warn"
	if err := logging.Init(cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to init logging: %w", err)
	}
	return store.Open(cfg.Storage)
}

func newTasksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Inspect and edit stored tasks",
	}
	cmd.AddCommand(newTasksListCmd(), newTasksAddCmd(), newTasksRemoveCmd())
	return cmd
}

func newTasksListCmd() *cobra.Command {
	var psid string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks, optionally for one sender",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			var tasks []*store.Task
			if psid != "" {
				tasks, err = s.ListBySender(cmd.Context(), psid)
			} else {
				tasks, err = s.ListAll(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Print(formatTasks(tasks))
			return nil
		},
	}

	cmd.Flags().StringVar(&psid, "psid", "", "Only list tasks of this sender")
	return cmd
}

func newTasksAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <psid> <text...>",
		Short: "Add a task for a sender",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			task, err := s.Create(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("%s %s\n", okStyle.Render("Added"), idStyle.Render(task.ID))
			return nil
		},
	}
}

func newTasksRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id...>",
		Short: "Delete tasks by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore()
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }()

			return removeTasks(cmd.Context(), s, args)
		},
	}
}

func removeTasks(ctx context.Context, s *store.Store, ids []string) error {
	for _, id := range ids {
		deleted, err := s.Delete(ctx, id)
		if err != nil {
			return err
		}
		if deleted {
			fmt.Printf("%s %s\n", okStyle.Render("Deleted"), idStyle.Render(id))
		} else {
			fmt.Printf("%s %s\n", warnStyle.Render("Not found"), idStyle.Render(id))
		}
	}
	return nil
}

// formatTasks renders tasks one per line in store order.
func formatTasks(tasks []*store.Task) string {
	if len(tasks) == 0 {
		return "No tasks.\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%d task(s)", len(tasks))))
	b.WriteString("\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "%s  %s  %s  %s\n",
			idStyle.Render(t.ID),
			senderStyle.Render(t.SenderID),
			t.CreatedAt.Local().Format("2006-01-02 15:04"),
			t.Text,
		)
	}
	return b.String()
}
