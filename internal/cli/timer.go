package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Show the running timer on this device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}

		out := cmd.OutOrStdout()
		sess := Lifecycle.CurrentSession()
		if sess == nil {
			fmt.Fprintln(out, "No timer running.")
			return nil
		}

		ctx := commandContext(cmd)
		task, err := Lifecycle.GetTask(ctx, sess.TaskID)
		if err != nil {
			return presentError(fmt.Errorf("loading timed task: %w", err))
		}
		elapsed := core.ElapsedSeconds(task, sess, Clock.Now())

		fmt.Fprintf(out, "%s  %s  %s\n", task.ID, timerStyle.Render(core.FormatDuration(elapsed)), task.Title)
		fmt.Fprintf(out, "  running since %s\n", sess.StartTime.Local().Format(time.TimeOnly))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(timerCmd)
}
