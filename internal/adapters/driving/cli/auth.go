package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/carcrm-cli/internal/core/ports/driven"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Google sign-in session",
	Long: `Set up the Google OAuth client and manage the sign-in session.

CarCRM uses a Google OAuth application to access the shared Drive
folder. Run 'carcrm auth setup' once to store the client credentials,
then 'carcrm auth login' to sign in through the browser.

Examples:
  # Store the OAuth client credentials (one-off)
  carcrm auth setup

  # Sign in through the browser
  carcrm auth login

  # Show the current session
  carcrm auth status

  # Sign out and revoke the token
  carcrm auth logout`,
}

var authSetupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Store the Google OAuth client credentials",
	Long: `Store the OAuth client ID and secret used for Google sign-in.

Create a Desktop-type OAuth client in the Google Cloud console with
the Drive API enabled, then enter its credentials here. The secret is
read without echo and written to the config file with owner-only
permissions.`,
	RunE: runAuthSetup,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google",
	RunE:  runAuthLogin,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the current token",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sign-in state",
	RunE:  runAuthStatus,
}

// Flags for auth setup.
var (
	authSetupClientID     string
	authSetupClientSecret string
)

func init() {
	authSetupCmd.Flags().StringVar(
		&authSetupClientID, "client-id", "", "OAuth client ID (for non-interactive mode)")
	authSetupCmd.Flags().StringVar(
		&authSetupClientSecret, "client-secret", "", "OAuth client secret (for non-interactive mode)")

	authCmd.AddCommand(authSetupCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
	rootCmd.AddCommand(authCmd)
}

//nolint:errcheck // CLI interactive flow
func runAuthSetup(cmd *cobra.Command, _ []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	clientID := authSetupClientID
	clientSecret := authSetupClientSecret

	if clientID == "" {
		reader := bufio.NewReader(os.Stdin)
		cmd.Print("Client ID: ")
		input, _ := reader.ReadString('\n')
		clientID = strings.TrimSpace(input)
	}
	if clientID == "" {
		return errors.New("client ID is required")
	}

	if clientSecret == "" {
		cmd.Print("Client Secret: ")
		clientSecret = readSecret()
		cmd.Println()
	}
	if clientSecret == "" {
		return errors.New("client secret is required")
	}

	if err := configStore.Set(driven.ConfigKeyClientID, clientID); err != nil {
		return fmt.Errorf("failed to store client ID: %w", err)
	}
	if err := configStore.Set(driven.ConfigKeyClientSecret, clientSecret); err != nil {
		return fmt.Errorf("failed to store client secret: %w", err)
	}

	cmd.Println("OAuth client credentials stored.")
	cmd.Println("Sign in with: carcrm auth login")
	return nil
}

func runAuthLogin(cmd *cobra.Command, _ []string) error {
	if authManager == nil {
		return errors.New("auth manager not configured")
	}
	if configStore != nil && configStore.GetString(driven.ConfigKeyClientID) == "" {
		return errors.New("no OAuth client configured, run: carcrm auth setup")
	}

	ctx := context.Background()

	if authManager.SignedIn() {
		cmd.Println("Already signed in.")
		return nil
	}

	cmd.Println("Opening browser for Google sign-in...")
	if err := authManager.SignIn(ctx); err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}

	cmd.Println("Signed in.")
	return nil
}

func runAuthLogout(cmd *cobra.Command, _ []string) error {
	if authManager == nil {
		return errors.New("auth manager not configured")
	}

	ctx := context.Background()

	if !authManager.SignedIn() {
		cmd.Println("Not signed in.")
		return nil
	}

	if err := authManager.SignOut(ctx); err != nil {
		return fmt.Errorf("sign-out failed: %w", err)
	}

	cmd.Println("Signed out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, _ []string) error {
	if authManager == nil {
		return errors.New("auth manager not configured")
	}

	if !authManager.SignedIn() {
		cmd.Println("Signed out.")
		cmd.Println("Sign in with: carcrm auth login")
		return nil
	}

	cmd.Println("Signed in.")

	cred, err := authManager.Credential(context.Background())
	if err == nil && !cred.ExpiresAt.IsZero() {
		cmd.Printf("Access token expires: %s\n", cred.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}

// readSecret reads a line without echoing when stdin is a terminal.
//
//nolint:errcheck // CLI interactive flow
func readSecret() string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(password))
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}
