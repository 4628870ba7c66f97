package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
	"github.com/Bluefinee/tempo-ai-sub007/internal/services"
	"github.com/Bluefinee/tempo-ai-sub007/internal/ui/report"
	"github.com/Bluefinee/tempo-ai-sub007/internal/ui/styles"
)

func (c *cli) refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Refresh today's snapshot and request advice",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(true, func(mgr *services.Manager) error {
				res, err := mgr.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				c.printRefresh(mgr, res)
				switch {
				case res.Advice != nil:
					fmt.Fprintln(c.out, report.Advice(res.Advice))
				case res.DeliveryErr != nil:
					fmt.Fprintln(c.out, report.DeliveryError(res.DeliveryErr))
				}
				return nil
			})
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show today's wellbeing status without contacting the advisory service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(false, func(mgr *services.Manager) error {
				res, err := mgr.Refresh(cmd.Context())
				if err != nil {
					return err
				}
				c.printRefresh(mgr, res)
				if advice := mgr.Advice(cmd.Context()); advice != nil && res.Status != nil && advice.SnapshotID == res.Status.SnapshotID {
					fmt.Fprintln(c.out, report.Advice(advice))
				}
				return nil
			})
		},
	}
}

func (c *cli) printRefresh(mgr *services.Manager, res *services.RefreshResult) {
	if res.Outcome.Stale {
		fmt.Fprintln(c.out, styles.WarningTextStyle.Render(
			fmt.Sprintf("live data unavailable, showing %s: %v", res.Outcome.Day, res.Outcome.Err)))
	}
	if res.Status != nil {
		fmt.Fprintln(c.out, report.Status(*res.Status, mgr.Snapshot(), res.Outcome.Stale))
	}
}

func (c *cli) trendCmd() *cobra.Command {
	var (
		days   int
		metric string
		width  int
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Show rolling statistics over recent days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(false, func(mgr *services.Manager) error {
				trend, err := mgr.Trend(cmd.Context(), days)
				if err != nil {
					return err
				}
				if metric != "" {
					fmt.Fprintln(c.out, report.TrendChart(trend, models.MetricKey(metric), width))
					return nil
				}
				fmt.Fprintln(c.out, report.TrendTable(trend))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "number of most recent days (default TEMPO_TREND_DAYS)")
	cmd.Flags().StringVarP(&metric, "metric", "m", "", "plot a single metric, e.g. vitals.hrv")
	cmd.Flags().IntVar(&width, "width", report.DefaultWidth, "chart width")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show logged wellbeing states",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(false, func(mgr *services.Manager) error {
				entries, err := mgr.History(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.out, report.History(entries))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 14, "number of days to show")
	return cmd
}

func (c *cli) purgeCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete cached snapshots and logs older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withManager(false, func(mgr *services.Manager) error {
				res, err := mgr.Purge(cmd.Context(), days)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "purged %d snapshot(s), %d status row(s), %d advice row(s)\n",
					res.Snapshots, res.Statuses, res.Advice)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "retention in days (default TEMPO_RETENTION_DAYS)")
	return cmd
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Refresh whenever the health exports change",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			return c.withManager(true, func(mgr *services.Manager) error {
				if c.cfg.MetricsAddr != "" {
					srv := startMetricsServer(c.cfg.MetricsAddr)
					defer shutdownMetricsServer(srv)
				}

				if res, err := mgr.Refresh(ctx); err != nil {
					fmt.Fprintln(c.out, styles.ErrorTextStyle.Render(err.Error()))
				} else {
					c.printRefresh(mgr, res)
				}

				events := mgr.Subscribe()
				defer mgr.Unsubscribe(events)

				if err := mgr.StartWatching(ctx); err != nil {
					return err
				}
				defer mgr.StopWatching()

				logger.Info("watching for changes", "data_source", c.cfg.DataSource)
				for {
					select {
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						c.printEvent(ev)
					case <-ctx.Done():
						return nil
					}
				}
			})
		},
	}
}

func (c *cli) printEvent(ev services.ServiceEvent) {
	now := time.Now().Format(time.TimeOnly)
	switch e := ev.(type) {
	case services.StatusUpdatedEvent:
		state := styles.GetStateStyle(e.Status.State).Render(string(e.Status.State))
		fmt.Fprintf(c.out, "%s status %s %.0f%% (%s confidence)\n", now, state, e.Status.Score*100, e.Status.Confidence)
	case services.AdviceUpdatedEvent:
		fmt.Fprintln(c.out, report.Advice(&e.Advice))
	case services.PurgeEvent:
		fmt.Fprintf(c.out, "%s purged %d snapshot(s)\n", now, e.Result.Snapshots)
	case services.ErrorEvent:
		fmt.Fprintf(c.out, "%s %s\n", now, styles.ErrorTextStyle.Render(e.Service+": "+e.Error.Error()))
	}
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}

func shutdownMetricsServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("failed to stop metrics server", "error", err)
	}
}
