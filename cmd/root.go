package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tick",
	Short: "tick – a terminal client for Tick time tracking",
	Long: `tick books time entries against a Tick account from the terminal.
Entries, projects and tasks live on the Tick server; the API key, reminder
times and meeting task memory are kept locally in ~/.tick/.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called from main. Interrupts cancel the
// command context so long-running commands can shut down.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.tick/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn, error")

	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(remindersCmd)
	rootCmd.AddCommand(outlookCmd)
}
