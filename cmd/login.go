package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/tgtg/tgtg"
)

var (
	signUpName       string
	signUpCountry    string
	signUpNewsletter bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with the configured email address",
	Long: `Send a login email to the configured account and wait until the link in
it is opened. The session is saved and reused by the other commands.`,
	RunE: runLogin,
}

var signUpCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account for the configured email address",
	RunE:  runSignUp,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the login state of the saved session",
	RunE:  runStatus,
}

func init() {
	signUpCmd.Flags().StringVar(&signUpName, "name", "", "display name for the new account")
	signUpCmd.Flags().StringVar(&signUpCountry, "country", "GB", "two letter country code")
	signUpCmd.Flags().BoolVar(&signUpNewsletter, "newsletter", false, "subscribe to the newsletter")

	rootCmd.AddCommand(loginCmd, signUpCmd, logoutCmd, statusCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if client.State() == tgtg.StateAuthenticated {
		fmt.Printf("Already logged in as %s. Run 'tgtg logout' first to switch accounts.\n", client.Email())
		return nil
	}

	fmt.Printf("Requesting a login email for %s, open the link in it to continue...\n", client.Email())

	err := client.AuthByEmail(cmd.Context())
	if errors.Is(err, tgtg.ErrEmailNotRegistered) {
		return fmt.Errorf("%s has no account yet, run 'tgtg signup' first", client.Email())
	}
	if err != nil {
		return err
	}

	fmt.Println("✓ Logged in")
	return nil
}

func runSignUp(cmd *cobra.Command, args []string) error {
	auth, err := client.SignUpByEmail(cmd.Context(), tgtg.SignUpOptions{
		Email:           client.Email(),
		Name:            signUpName,
		CountryID:       signUpCountry,
		NewsletterOptIn: signUpNewsletter,
	})
	if err != nil {
		return err
	}

	fmt.Printf("✓ Account created, user id %s\n", auth.UserID)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}
	logger.Info().Msg("Session cleared")
	fmt.Println("✓ Logged out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, ok := client.Session()
	if !ok {
		fmt.Printf("%s: %s\n", client.Email(), client.State())
		return nil
	}

	fmt.Printf("%s: %s (user %s)\n", client.Email(), client.State(), s.UserID)
	fmt.Printf("Token refreshed: %s\n", s.TokenRefreshTime.Local().Format("2006-01-02 15:04:05"))
	return nil
}
