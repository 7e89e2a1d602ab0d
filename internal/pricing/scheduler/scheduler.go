package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"pricewatch_api/config/values"
	"pricewatch_api/internal/pricing/business/services/alerts"
	"pricewatch_api/internal/pricing/business/services/refresh"
	"pricewatch_api/internal/pricing/storage"
	"pricewatch_api/pkg/logger"
)

// Scheduler запускает регулярные задания: ночной тихий полный обход каждого
// каталога и дневную сводку нарушений. Оба задания переиспользуют те же
// операции движка, что и API.
type Scheduler struct {
	cron     *cron.Cron
	engine   *refresh.Engine
	resolver *storage.Resolver
	window   *alerts.Window
	schedule values.ScheduleValues
	log      logger.Logger
}

func NewScheduler(
	engine *refresh.Engine,
	resolver *storage.Resolver,
	window *alerts.Window,
	schedule values.ScheduleValues,
	log logger.Logger,
) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		engine:   engine,
		resolver: resolver,
		window:   window,
		schedule: schedule,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule.FullSweepSpec, s.runFullSweeps); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.schedule.DailySummarySpec, s.runDailySummaries); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Log("scheduler started: full sweep %q, daily summary %q",
		s.schedule.FullSweepSpec, s.schedule.DailySummarySpec)
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// runFullSweeps — тихий режим: уведомления шлёт только дневная сводка.
func (s *Scheduler) runFullSweeps() {
	ctx := context.Background()
	for _, catalog := range s.resolver.All() {
		report, err := s.engine.FullSweep(ctx, catalog, 0, true)
		if err != nil {
			s.log.Log("scheduled sweep %s: %v", catalog.Name(), err)
			continue
		}
		if report.Locked {
			s.log.Log("scheduled sweep %s: already running, skipped", catalog.Name())
			continue
		}
		s.log.Log("scheduled sweep %s: updated=%d errors=%d remaining=%d done=%v",
			catalog.Name(), report.UpdatedTotal, report.ErrorsTotal, report.Remaining, report.Done)
	}
}

func (s *Scheduler) runDailySummaries() {
	if !s.window.Contains(time.Now()) {
		s.log.Log("daily summary skipped: outside active hours")
		return
	}
	ctx := context.Background()
	for _, catalog := range s.resolver.All() {
		okCount, failCount, err := s.engine.RunDailySummary(ctx, catalog)
		if err != nil {
			s.log.Log("daily summary %s: %v", catalog.Name(), err)
			continue
		}
		s.log.Log("daily summary %s: ok=%d fail=%d", catalog.Name(), okCount, failCount)
	}
}
