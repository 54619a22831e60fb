package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"area710/internal/archive"
	"area710/internal/config"
	appLog "area710/internal/log"
	"area710/internal/metrics"
	"area710/internal/project"
	"area710/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the browser editor",
	Long: `Serve the editor UI and JSON API. When archive.schedule is set, backup
archives are written on that cron schedule while the server runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	appLog.Info("area710 starting",
		"listen", cfg.Listen,
		"project", cfg.ProjectPath,
		"history_depth", cfg.HistoryDepth,
		"archive_schedule", cfg.Archive.Schedule,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws := &project.Workspace{}
	if cfg.ProjectPath != "" {
		if _, err := ws.Select(cfg.ProjectPath); err != nil {
			// The UI can still pick a project.
			appLog.Error("configured project unusable", err, "path", cfg.ProjectPath)
		}
	}

	m := metrics.New()

	if cfg.Archive.Schedule != "" {
		sched, err := newArchiveScheduler(ctx, cfg, ws, m)
		if err != nil {
			return err
		}
		sched.Start()
		appLog.Info("next archive", "at", sched.Next().Format(time.RFC3339))
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			sched.Stop(stopCtx)
		}()
	}

	if err := web.StartServer(ctx, web.NewServer(cfg, ws, m)); err != nil {
		appLog.Error("HTTP server failed", err)
		return err
	}
	appLog.Info("area710 exiting")
	return nil
}

// archiveSink picks S3 when a bucket is configured and the local backup
// directory otherwise.
func archiveSink(ctx context.Context, cfg *config.Config) (archive.Sink, error) {
	if cfg.Archive.S3 != nil {
		return archive.NewS3Sink(ctx, *cfg.Archive.S3, nil)
	}
	return archive.DirSink{Dir: cfg.Archive.Dir, Keep: cfg.Archive.Keep}, nil
}

func newArchiveScheduler(ctx context.Context, cfg *config.Config, src archive.Source, m *metrics.Metrics) (*archive.Scheduler, error) {
	sink, err := archiveSink(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return archive.NewScheduler(cfg.Archive.Schedule, src, sink, m)
}
