package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks (create, list, show, start, pause, complete, review)",
	Long: `Unified task management commands.

Operators start, pause and complete their assigned tasks. Leaders and
admins create tasks, send completed work to quality control, finalize it
or reject it back for correction, and reassign tasks between operators.`,
}

var (
	taskCreateProject     string
	taskCreateAssign      string
	taskCreateDescription string
)

var taskCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a new task",
	Long: `Create a pending task in a project and assign it to an operator.

Admins may create tasks in any project; leaders only in projects they lead.
The assignee receives a "task assigned" notification.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		task, err := Lifecycle.CreateTask(commandContext(cmd), actor, core.NewTaskRequest{
			Title:       args[0],
			Description: taskCreateDescription,
			ProjectID:   taskCreateProject,
			AssignedTo:  taskCreateAssign,
		})
		if err != nil {
			return presentError(fmt.Errorf("creating task: %w", err))
		}
		drainNotifications(commandContext(cmd))

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Created task %s\n", task.ID)
		fmt.Fprintf(out, "  Title:    %s\n", task.Title)
		fmt.Fprintf(out, "  Project:  %s\n", task.ProjectID)
		fmt.Fprintf(out, "  Assignee: %s\n", task.AssignedTo)
		return nil
	},
}

var taskListStatus string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks visible to you",
	Long: `List tasks with their status and tracked time.

Operators see their own tasks, leaders see the tasks of the projects they
lead, and admins see every task. Use --status to filter by one status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		var status models.TaskStatus
		if taskListStatus != "" {
			status = models.TaskStatus(taskListStatus)
			if !status.Valid() {
				return fmt.Errorf("invalid status %q", taskListStatus)
			}
		}

		ctx := commandContext(cmd)
		tasks, err := Lifecycle.ListTasks(ctx, actor)
		if err != nil {
			return presentError(fmt.Errorf("listing tasks: %w", err))
		}

		out := cmd.OutOrStdout()
		shown := 0
		for i := range tasks {
			if status != "" && tasks[i].Status != status {
				continue
			}
			if shown == 0 {
				fmt.Fprintf(out, "%-12s %-11s %-9s %-12s %s\n", "ID", "STATUS", "TIME", "ASSIGNEE", "TITLE")
			}
			shown++
			printTaskRow(ctx, out, &tasks[i])
		}
		if shown == 0 {
			fmt.Fprintln(out, "No tasks found.")
		}
		return nil
	},
}

func printTaskRow(ctx context.Context, out io.Writer, task *models.Task) {
	elapsed := task.TotalTimeSpent
	if live, err := Lifecycle.Elapsed(ctx, task.ID); err == nil {
		elapsed = live
	}
	marker := " "
	if sess := Lifecycle.CurrentSession(); sess != nil && sess.TaskID == task.ID {
		marker = "*"
	}
	fmt.Fprintf(out, "%-12s %s %s%-8s %-12s %s\n",
		task.ID, statusBadge(task.Status), marker, core.FormatDuration(elapsed), task.AssignedTo, task.Title)
}

var taskShowCmd = &cobra.Command{
	Use:   "show <task-id>",
	Short: "Show a task and the actions available to you",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		task, err := Lifecycle.GetTask(ctx, args[0])
		if err != nil {
			return presentError(fmt.Errorf("loading task: %w", err))
		}
		elapsed, err := Lifecycle.Elapsed(ctx, task.ID)
		if err != nil {
			elapsed = task.TotalTimeSpent
		}

		var project *models.Project
		if Projects != nil {
			project, _ = Projects.Get(ctx, task.ProjectID)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s  %s\n", titleStyle.Render(task.ID), task.Title)
		fmt.Fprintf(out, "  Status:    %s\n", styleForStatus(task.Status).Render(string(task.Status)))
		fmt.Fprintf(out, "  Time:      %s\n", core.FormatDuration(elapsed))
		fmt.Fprintf(out, "  Project:   %s\n", task.ProjectID)
		fmt.Fprintf(out, "  Assignee:  %s\n", task.AssignedTo)
		if task.Description != "" {
			fmt.Fprintf(out, "  Details:   %s\n", task.Description)
		}
		fmt.Fprintf(out, "  Created:   %s\n", task.CreatedAt.Local().Format(time.DateTime))
		if task.CompletedAt != nil {
			fmt.Fprintf(out, "  Completed: %s\n", task.CompletedAt.Local().Format(time.DateTime))
		}

		allowed := core.AllowedEvents(task, actor, project)
		if len(allowed) == 0 {
			fmt.Fprintln(out, "  Actions:   none")
			return nil
		}
		names := make([]string, len(allowed))
		for i, ev := range allowed {
			names[i] = commandForEvent(ev)
		}
		fmt.Fprintf(out, "  Actions:   %s\n", strings.Join(names, ", "))
		return nil
	},
}

// transitionFunc is one lifecycle operation applied by a subcommand.
type transitionFunc func(l core.TaskLifecycle, ctx context.Context, actor core.Actor, taskID string) (*models.Task, error)

// newTransitionCmd builds the subcommand for one state machine event.
func newTransitionCmd(use, short, done string, apply transitionFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <task-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if Lifecycle == nil {
				return fmt.Errorf("task lifecycle not initialized")
			}
			actor, err := currentActor()
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			task, err := apply(Lifecycle, ctx, actor, args[0])
			if err != nil {
				return presentError(err)
			}
			drainNotifications(ctx)

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s)\n",
				done, task.ID, task.Status, core.FormatDuration(task.TotalTimeSpent))
			return nil
		},
	}
}

var (
	taskStartCmd = newTransitionCmd("start", "Start or resume timing a task", "Started",
		core.TaskLifecycle.Start)
	taskPauseCmd = newTransitionCmd("pause", "Pause a running task", "Paused",
		core.TaskLifecycle.Pause)
	taskCompleteCmd = newTransitionCmd("complete", "Mark a task as done", "Completed",
		core.TaskLifecycle.Complete)
	taskQCCmd = newTransitionCmd("qc", "Send a completed task to quality control", "Sent to QC",
		core.TaskLifecycle.SendToQC)
	taskFinalizeCmd = newTransitionCmd("finalize", "Approve a task in quality control", "Finalized",
		core.TaskLifecycle.Finalize)
	taskRejectCmd = newTransitionCmd("reject", "Send a task in quality control back for correction", "Rejected",
		core.TaskLifecycle.Reject)
)

var taskAssignCmd = &cobra.Command{
	Use:   "assign <task-id> <user-id>",
	Short: "Reassign a task to another operator",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		actor, err := currentActor()
		if err != nil {
			return err
		}

		ctx := commandContext(cmd)
		task, err := Lifecycle.Reassign(ctx, actor, args[0], args[1])
		if err != nil {
			return presentError(err)
		}
		drainNotifications(ctx)

		fmt.Fprintf(cmd.OutOrStdout(), "Assigned %s to %s\n", task.ID, task.AssignedTo)
		return nil
	},
}

func commandForEvent(ev core.Event) string {
	if ev == core.EventSendToQC {
		return "qc"
	}
	return string(ev)
}

func init() {
	taskCreateCmd.Flags().StringVar(&taskCreateProject, "project", "", "Project the task belongs to")
	taskCreateCmd.Flags().StringVar(&taskCreateAssign, "assign", "", "User id of the assignee")
	taskCreateCmd.Flags().StringVar(&taskCreateDescription, "description", "", "Task description")
	_ = taskCreateCmd.MarkFlagRequired("project")
	_ = taskCreateCmd.MarkFlagRequired("assign")

	taskListCmd.Flags().StringVar(&taskListStatus, "status", "", "Only list tasks in this status")

	taskCmd.AddCommand(taskCreateCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskStartCmd)
	taskCmd.AddCommand(taskPauseCmd)
	taskCmd.AddCommand(taskCompleteCmd)
	taskCmd.AddCommand(taskQCCmd)
	taskCmd.AddCommand(taskFinalizeCmd)
	taskCmd.AddCommand(taskRejectCmd)
	taskCmd.AddCommand(taskAssignCmd)
	rootCmd.AddCommand(taskCmd)
}
