package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "area710/internal/log"
	"area710/internal/metrics"
	"area710/internal/project"
)

// Source yields the project to archive. *project.Workspace satisfies it.
type Source interface {
	Current() (project.Project, error)
}

// Scheduler runs archive jobs on a 5-field cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	src     Source
	sink    Sink
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewScheduler validates spec and registers the archive job. The job does
// not run until Start.
func NewScheduler(spec string, src Source, sink Sink, m *metrics.Metrics) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		src:     src,
		sink:    sink,
		metrics: m,
		now:     time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("archive: invalid schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	appLog.Info("archive scheduler started", "sink", s.sink.Name())
	s.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish or ctx to
// end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
	appLog.Info("archive scheduler stopped")
}

// Next reports when the job fires next. Zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		appLog.Error("scheduled archive failed", err, "sink", s.sink.Name())
	}
}

// RunOnce archives the current project immediately.
func (s *Scheduler) RunOnce(ctx context.Context) (string, error) {
	loc, err := s.run(ctx)
	s.metrics.Archived(s.sink.Name(), err)
	return loc, err
}

func (s *Scheduler) run(ctx context.Context) (string, error) {
	p, err := s.src.Current()
	if err != nil {
		return "", err
	}
	data, err := Export(p)
	if err != nil {
		return "", err
	}
	loc, err := s.sink.Put(ctx, p.Root, FileName(s.now()), data)
	if err != nil {
		return "", err
	}
	appLog.Info("archive written", "location", loc, "bytes", len(data))
	return loc, nil
}
