package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	ttmcp "github.com/valter-silva-au/tasktimer/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the tt MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tt MCP server on stdio",
	Long: `Start the tt MCP server on stdio transport.

The server acts as the user logged in on this device and exposes the task
workflow as MCP tools: list_tasks, get_task, start_task, pause_task,
complete_task, get_timer, list_notifications, mark_notification_read,
get_metrics and get_alerts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}

		srv := ttmcp.NewServer(ttmcp.Config{
			Lifecycle:     Lifecycle,
			Notifications: Notifications,
			Reconciler:    Reconciler,
			Actor:         currentActor,
			Clock:         Clock,
			MetricsCalc:   MetricsCalc,
			AlertEngine:   AlertEngine,
			Events:        Events,
			Logger:        Logger,
			Version:       appVersion,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
