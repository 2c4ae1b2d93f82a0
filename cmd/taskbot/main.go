package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/alekspetrov/taskbot/internal/config"
)

var (
	version   = "dev"
	buildTime = "unknown"
	cfgFile   string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "taskbot",
		Short: "Messenger to-do list bot",
		Long:  `Taskbot receives Messenger webhook events, keeps a per-sender task list and replies through the Send API.`,
	}
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default "+config.DefaultConfigPath()+")")

	rootCmd.AddCommand(
		newServeCmd(),
		newTasksCmd(),
		newBrowseCmd(),
		newDoctorCmd(),
		newInitCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath()
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(config.DefaultConfig(), path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			fmt.Printf("Config written to %s\n", path)
			fmt.Println("Set PAGE_ACCESS_TOKEN and VERIFY_TOKEN (or edit the file) before running 'taskbot serve'.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show taskbot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("taskbot %s\n", version)
			if buildTime != "unknown" {
				fmt.Printf("Built: %s\n", buildTime)
			}
		},
	}
}
