package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/helpdesk-go/helpdesk/internal/config"
	"github.com/helpdesk-go/helpdesk/internal/service"
)

// ReportWorker runs the scheduled monthly report. The default schedule
// fires shortly after month start and reports on the month just ended.
type ReportWorker struct {
	reports  *service.ReportService
	renderer service.ReportRenderer
	cfg      config.ReportConfig
	logger   *zap.Logger
	cron     *cron.Cron
}

// NewReportWorker constructs the worker.
func NewReportWorker(cfg config.ReportConfig, reports *service.ReportService, renderer service.ReportRenderer, logger *zap.Logger) *ReportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = service.JSONRenderer{}
	}
	return &ReportWorker{reports: reports, renderer: renderer, cfg: cfg, logger: logger}
}

// Start schedules the job. A bad cron spec is a startup error.
func (w *ReportWorker) Start() error {
	if !w.cfg.WorkerEnabled {
		w.logger.Info("report worker disabled")
		return nil
	}

	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.cfg.CronSpec, w.run); err != nil {
		return err
	}
	w.cron.Start()
	w.logger.Info("report worker started", zap.String("cron", w.cfg.CronSpec))
	return nil
}

// Stop halts the scheduler and waits for a running job to finish.
func (w *ReportWorker) Stop() {
	if w.cron == nil {
		return
	}
	<-w.cron.Stop().Done()
}

func (w *ReportWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := w.reports.GenerateScheduled(ctx, time.Now())
	if err != nil {
		w.logger.Error("scheduled report failed", zap.Error(err))
		return
	}
	rendered, err := w.renderer.Render(report)
	if err != nil {
		w.logger.Error("report rendering failed", zap.Error(err))
		return
	}
	w.logger.Info("scheduled report ready",
		zap.String("period", report.Period),
		zap.Int("bytes", len(rendered)),
	)
}
