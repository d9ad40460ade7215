package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var notificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"inbox"},
	Short:   "List and acknowledge your notifications",
}

var notificationsAll bool

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List unread notifications, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Notifications == nil {
			return fmt.Errorf("notification store not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		drainNotifications(ctx)

		var notes []models.Notification
		if notificationsAll {
			notes, err = Notifications.ListForUser(ctx, actor.UserID)
			if err != nil {
				return fmt.Errorf("listing notifications: %w", err)
			}
		} else {
			inbox := core.NewInbox(actor.UserID, Notifications, nil).WithLogger(Logger)
			if err := inbox.Seed(ctx); err != nil {
				return presentError(err)
			}
			notes = inbox.Unread()
		}

		out := cmd.OutOrStdout()
		if len(notes) == 0 {
			fmt.Fprintln(out, "No notifications.")
			return nil
		}
		for _, n := range notes {
			printNotification(out, n)
		}
		return nil
	},
}

func printNotification(out io.Writer, n models.Notification) {
	flag := "*"
	if n.Read {
		flag = " "
	}
	fmt.Fprintf(out, "%s %s  %s  %s\n", flag, n.ID, n.CreatedAt.Local().Format(time.DateTime),
		styleForNotification(n.Type).Render(n.Message))
}

var notificationsReadAll bool

var notificationsReadCmd = &cobra.Command{
	Use:   "read [notification-id...]",
	Short: "Mark notifications as read",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Notifications == nil {
			return fmt.Errorf("notification store not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}
		if len(args) == 0 && !notificationsReadAll {
			return fmt.Errorf("pass notification ids or --all")
		}

		ctx := commandContext(cmd)
		inbox := core.NewInbox(actor.UserID, Notifications, Events).WithLogger(Logger)
		ids := args
		if notificationsReadAll {
			if err := inbox.Seed(ctx); err != nil {
				return presentError(err)
			}
			for _, n := range inbox.Unread() {
				ids = append(ids, n.ID)
			}
		}

		for _, id := range ids {
			if err := inbox.MarkRead(ctx, id); err != nil {
				return presentError(err)
			}
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %d notification(s) as read\n", len(ids))
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().BoolVar(&notificationsAll, "all", false, "Include notifications already read")
	notificationsReadCmd.Flags().BoolVar(&notificationsReadAll, "all", false, "Mark every unread notification as read")

	notificationsCmd.AddCommand(notificationsListCmd)
	notificationsCmd.AddCommand(notificationsReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}
