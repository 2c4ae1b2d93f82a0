package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alekspetrov/taskbot/internal/config"
	"github.com/alekspetrov/taskbot/internal/health"
	"github.com/alekspetrov/taskbot/internal/logging"
	"github.com/alekspetrov/taskbot/internal/store"
)

func newDoctorCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration and storage",
		Long: `Run health checks on credentials, storage and optional features.

Examples:
  taskbot doctor           # Run all checks
  taskbot doctor --verbose # Show how to fix problems`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			logging.Suppress()

			var counter health.Counter
			if s, err := store.Open(cfg.Storage); err == nil {
				defer func() { _ = s.Close() }()
				counter = s
			}

			report := health.RunChecks(cmd.Context(), cfg, counter)

			fmt.Println()
			fmt.Println(headerStyle.Render("Taskbot Health Check"))
			fmt.Println()
			printChecks("Configuration:", report.Config, verbose)
			printChecks("Storage:", report.Storage, verbose)

			fmt.Println("Features:")
			for _, f := range report.Features {
				note := ""
				if f.Note != "" {
					note = " (" + f.Note + ")"
				}
				fmt.Printf("  %s %-16s%s\n", f.Status.ColorSymbol(), f.Name, note)
			}
			fmt.Println()

			errors, warnings := report.Summary()
			switch {
			case errors > 0:
				fmt.Println(warnStyle.Render(fmt.Sprintf("%d error(s), %d warning(s): not ready to serve", errors, warnings)))
				return fmt.Errorf("%d health check(s) failed", errors)
			case warnings > 0:
				fmt.Println(okStyle.Render(fmt.Sprintf("Ready to serve with %d warning(s)", warnings)))
			default:
				fmt.Println(okStyle.Render("Ready to serve"))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show fixes for failing checks")
	return cmd
}

func printChecks(title string, checks []health.Check, verbose bool) {
	fmt.Println(title)
	for _, c := range checks {
		fmt.Printf("  %s %-20s %s\n", c.Status.ColorSymbol(), c.Name, c.Message)
		if verbose && c.Fix != "" && c.Status != health.StatusOK {
			fmt.Printf("                         → %s\n", c.Fix)
		}
	}
	fmt.Println()
}
