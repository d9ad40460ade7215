package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
)

var loginCmd = &cobra.Command{
	Use:   "login <user-id>",
	Short: "Sign in as a user on this device",
	Long: `Record the user working on this device. Every task command acts as
this user until 'tt logout'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Users == nil || Snapshots == nil {
			return fmt.Errorf("user directory not initialized")
		}

		current, err := currentUser()
		switch {
		case err == nil && current.ID == args[0]:
			fmt.Fprintf(cmd.OutOrStdout(), "Already logged in as %s\n", current.Username)
			return nil
		case err == nil:
			return fmt.Errorf("already logged in as %s; run 'tt logout' first", current.Username)
		case !errors.Is(err, errNotLoggedIn):
			return err
		}

		user, err := Users.Get(commandContext(cmd), args[0])
		if err != nil {
			return fmt.Errorf("looking up user %s: %w", args[0], err)
		}
		if err := Snapshots.Put(core.CurrentUserKey, user); err != nil {
			return fmt.Errorf("saving session: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", user.Username, user.Role)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Pause your running tasks and sign out",
	Long: `Pause every task of the current user that is still running, flushing
the tracked time, then forget the session on this device. Tasks that
cannot be paused are reported but do not block the logout.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		user, err := currentUser()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		report := Lifecycle.Logout(ctx, core.Actor{UserID: user.ID, Role: user.Role})
		drainNotifications(ctx)

		out := cmd.OutOrStdout()
		for _, id := range report.Paused {
			fmt.Fprintf(out, "Paused %s\n", id)
		}
		for _, f := range report.Failures {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s could not pause %s: %s\n",
				errorStyle.Render("warning:"), f.TaskID, core.UserMessage(f.Err))
		}
		fmt.Fprintf(out, "Logged out %s\n", user.Username)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the user signed in on this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := currentUser()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s (%s)\n", user.Username, user.ID)
		fmt.Fprintf(out, "  Role: %s\n", user.Role)
		if user.OperatorNumber != "" {
			fmt.Fprintf(out, "  Operator number: %s\n", user.OperatorNumber)
		}
		if Lifecycle != nil {
			if sess := Lifecycle.CurrentSession(); sess != nil {
				fmt.Fprintf(out, "  Timing: %s\n", sess.TaskID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
