package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/api"
	"github.com/Tiliavir/tick-tracker/internal/screens"
)

var (
	loginURL      string
	loginNoVerify bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store your Tick API key",
	Long: `login asks for your Tick API key (input is hidden) and stores it with
the API base URL in the local settings. The key is checked against the
server first unless --no-verify is given. Pipe the key on stdin for
non-interactive use.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginURL, "url", "", "API base URL; defaults to the stored one")
	loginCmd.Flags().BoolVar(&loginNoVerify, "no-verify", false, "Store the key without contacting the server")
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	baseURL := loginURL
	if baseURL == "" {
		baseURL = a.settings.Current().BaseURL
	}
	key, err := readSecret("Tick API key")
	if err != nil {
		exitErr(2, fmt.Errorf("reading API key: %w", err))
	}

	if !loginNoVerify && key != "" && baseURL != "" {
		if err := verifyKey(ctx, baseURL, key); err != nil {
			exitErr(1, fmt.Errorf("the server rejected the key: %w", err))
		}
	}

	saved, err := screens.Login(ctx, a.settings, key, baseURL)
	if err != nil {
		exitFor(err)
	}
	if _, err := a.reminder.Apply(ctx, saved.Schedule()); err != nil {
		a.log.Warn("configuring reminders failed", "error", err)
	}
	fmt.Printf("Logged in to %s\n", saved.BaseURL)
	return nil
}

func verifyKey(ctx context.Context, baseURL, key string) error {
	c, err := api.New(baseURL, key, api.WithTimeout(20*time.Second))
	if err != nil {
		return err
	}
	_, err = c.Clients(ctx)
	return err
}
