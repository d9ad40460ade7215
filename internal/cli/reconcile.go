package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	reconcileFollow      bool
	reconcileMetricsAddr string
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Turn pending task changes into notifications",
	Long: `Process the change feed and create the notifications its task changes
call for. Every mutating command already does this; run it with --follow
to keep a long-lived process reconciling changes made on other devices.

With --metrics-addr the engine counters are served on /metrics in the
Prometheus format while following.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Reconciler == nil {
			return fmt.Errorf("reconciler not initialized")
		}

		if !reconcileFollow {
			n, err := Reconciler.Drain(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("reconciling: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d notification(s)\n", n)
			return nil
		}

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt)
		defer stop()

		if reconcileMetricsAddr != "" {
			if Counters == nil {
				return fmt.Errorf("engine counters not initialized")
			}
			srv := serveMetrics(reconcileMetricsAddr)
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		Logger.Info("following change feed", zap.Duration("poll_interval", PollInterval))
		return Reconciler.Run(ctx)
	},
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Counters.Registry(), promhttp.HandlerOpts{}))
	return mux
}

func serveMetrics(addr string) *http.Server {
	srv := &http.Server{Addr: addr, Handler: metricsHandler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Error("serving metrics", zap.String("addr", addr), zap.Error(err))
		}
	}()
	return srv
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileFollow, "follow", false, "Keep following the change feed until interrupted")
	reconcileCmd.Flags().StringVar(&reconcileMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while following")
	rootCmd.AddCommand(reconcileCmd)
}
