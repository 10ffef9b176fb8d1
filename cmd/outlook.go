package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/tick-tracker/internal/msgraph"
)

var outlookCmd = &cobra.Command{
	Use:   "outlook",
	Short: "Outlook calendar sign-in for meeting suggestions",
	Long: `Set calendar.source to "outlook" in config.yaml and sign in once with
"tick outlook login". Suggestions never start a sign-in on their own.`,
}

var outlookLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with the device code flow",
	Args:  cobra.NoArgs,
	RunE:  runOutlookLogin,
}

var outlookLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored Outlook token",
	Args:  cobra.NoArgs,
	RunE:  runOutlookLogout,
}

var outlookStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether an Outlook token is stored",
	Args:  cobra.NoArgs,
	RunE:  runOutlookStatus,
}

func init() {
	outlookCmd.AddCommand(outlookLoginCmd, outlookLogoutCmd, outlookStatusCmd)
}

func runOutlookLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer a.Close()

	if _, err := a.outlookAuth().Login(ctx, os.Stderr); err != nil {
		exitErr(2, fmt.Errorf("authentication failed: %w", err))
	}
	fmt.Println("Signed in to Outlook.")
	if a.cfg.Calendar.Source != "outlook" {
		fmt.Println(`Set calendar.source: outlook in config.yaml to use it for suggestions.`)
	}
	return nil
}

func runOutlookLogout(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()

	if err := a.outlookAuth().Logout(); err != nil {
		exitErr(2, err)
	}
	fmt.Println("Signed out of Outlook.")
	return nil
}

func runOutlookStatus(cmd *cobra.Command, args []string) error {
	a := openApp(cmd.Context())
	defer a.Close()

	auth := a.outlookAuth()
	tok, err := auth.LoadToken()
	switch {
	case errors.Is(err, msgraph.ErrNotLoggedIn):
		fmt.Println("Not signed in.")
	case err != nil:
		exitErr(2, err)
	default:
		fmt.Printf("Signed in (token in %s", auth.TokenPath())
		if !tok.Expiry.IsZero() {
			fmt.Printf(", access token expires %s", tok.Expiry.In(a.loc).Format("2006-01-02 15:04"))
		}
		fmt.Println(")")
	}
	return nil
}
