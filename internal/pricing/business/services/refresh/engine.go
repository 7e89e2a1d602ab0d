package refresh

import (
	"context"
	"time"

	"pricewatch_api/config/values"
	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/internal/pricing/business/services/alerts"
	"pricewatch_api/internal/pricing/business/services/fetch"
	"pricewatch_api/internal/pricing/business/services/parse"
	"pricewatch_api/internal/pricing/business/services/pricing"
	"pricewatch_api/internal/pricing/storage"
	"pricewatch_api/metrics"
	"pricewatch_api/pkg/logger"
)

// maxSweepIterations — страховка от незавершающегося полного обхода, когда
// из-за постоянных ошибок выборка не пустеет.
const maxSweepIterations = 10000

// Engine — пакетное обновление цен: выбирает товары, требующие обновления,
// ходит в источник цен и согласует результат в хранилище. Полный обход
// каталога защищён именованной блокировкой и не пересекается сам с собой.
type Engine struct {
	repo       *storage.ProductRepository
	source     fetch.PriceSource
	calc       *pricing.Calculator
	floor      parse.FloorService
	dispatcher alerts.Dispatcher
	window     *alerts.Window
	locker     storage.Locker
	cfg        values.PricingValues
	log        logger.Logger
	now        func() time.Time
}

func NewEngine(
	repo *storage.ProductRepository,
	source fetch.PriceSource,
	calc *pricing.Calculator,
	floor parse.FloorService,
	dispatcher alerts.Dispatcher,
	window *alerts.Window,
	locker storage.Locker,
	cfg values.PricingValues,
	log logger.Logger,
) *Engine {
	return &Engine{
		repo:       repo,
		source:     source,
		calc:       calc,
		floor:      floor,
		dispatcher: dispatcher,
		window:     window,
		locker:     locker,
		cfg:        cfg,
		log:        log,
		now:        time.Now,
	}
}

func (e *Engine) clampLimit(limit int) int {
	if limit <= 0 {
		return e.cfg.BatchLimit
	}
	return limit
}

// reconcile записывает результат запроса к источнику. Недоступный товар
// помечается сентинелом -1 в price_after_seller_discount, чтобы не попадать
// в выборку снова. РРЦ из эвристики по названию ставится только ненулевой,
// молчание эвристики существующую РРЦ не трогает.
func (e *Engine) reconcile(ctx context.Context, catalog storage.Catalog, fr *models.FetchResult) error {
	p := models.Product{
		NmID:       fr.NmID,
		Brand:      fr.Brand,
		Title:      fr.Title,
		SellerID:   fr.SellerID,
		SellerName: fr.SellerName,
	}
	if fr.IsUnavailable() {
		p.PriceBeforeDiscount = 0
		p.PriceAfterDiscount = models.Unavailable
		metrics.RecordRefreshItem(catalog.Name(), "unavailable")
	} else {
		p.PriceBeforeDiscount = fr.PriceBeforeDiscount
		p.PriceAfterDiscount = fr.PriceAfterDiscount
		p.DisplayPrice = e.calc.DeriveDisplayPrice(fr.PriceAfterDiscount)
		metrics.RecordRefreshItem(catalog.Name(), "updated")
	}

	if err := e.repo.Upsert(ctx, catalog, p); err != nil {
		return err
	}

	if rrc := e.floor.FloorFromTitle(fr.Title); rrc != nil {
		if err := e.repo.SetFloorPrice(ctx, catalog, fr.NmID, rrc); err != nil {
			return err
		}
	}
	return nil
}

// RefreshOne — одиночное обновление (ручное добавление или кнопка refresh).
func (e *Engine) RefreshOne(ctx context.Context, catalog storage.Catalog, nmID int64) (*models.Product, error) {
	fr, err := e.source.Fetch(ctx, nmID)
	if err != nil {
		metrics.RecordRefreshItem(catalog.Name(), "error")
		return nil, err
	}
	if err := e.reconcile(ctx, catalog, fr); err != nil {
		return nil, err
	}
	return e.repo.Get(ctx, catalog, nmID)
}

// processIDs обрабатывает пакет идентификаторов. Ошибка источника по одному
// товару записывается и пропускается; ошибка записи в хранилище фатальна для
// всего вызова.
func (e *Engine) processIDs(ctx context.Context, catalog storage.Catalog, ids []int64) ([]int64, []models.ItemError, error) {
	updated := make([]int64, 0, len(ids))
	var itemErrors []models.ItemError

	for _, nmID := range ids {
		fr, err := e.source.Fetch(ctx, nmID)
		if err != nil {
			itemErrors = append(itemErrors, models.ItemError{NmID: nmID, Error: err.Error()})
			metrics.RecordRefreshItem(catalog.Name(), "error")
			continue
		}
		if err := e.reconcile(ctx, catalog, fr); err != nil {
			return nil, nil, err
		}
		updated = append(updated, nmID)
	}
	return updated, itemErrors, nil
}

// RefreshBatch — инкрементальный режим: один ограниченный пакет из выборки
// "кому нужно обновление".
func (e *Engine) RefreshBatch(ctx context.Context, catalog storage.Catalog, limit int, silent bool) (*models.BatchReport, error) {
	limit = e.clampLimit(limit)

	countBefore, err := e.repo.CountDue(ctx, catalog, e.cfg.StalenessHours)
	if err != nil {
		return nil, err
	}

	ids, err := e.repo.SelectDue(ctx, catalog, limit, e.cfg.StalenessHours)
	if err != nil {
		return nil, err
	}

	updated, itemErrors, err := e.processIDs(ctx, catalog, ids)
	if err != nil {
		return nil, err
	}

	remaining, err := e.repo.CountDue(ctx, catalog, e.cfg.StalenessHours)
	if err != nil {
		return nil, err
	}

	report := &models.BatchReport{
		Requested:    limit,
		Selected:     len(ids),
		UpdatedCount: len(updated),
		Updated:      updated,
		ErrorsCount:  len(itemErrors),
		Errors:       itemErrors,
		Remaining:    remaining,
		Done:         remaining == 0,
	}

	// Уведомляем только при переходе remaining из ненуля в ноль внутри этого
	// же вызова: никаких флагов на время жизни процесса.
	if !silent && countBefore > 0 && remaining == 0 {
		e.dispatchViolations(ctx, catalog)
	}
	return report, nil
}

// ForceBatch — детерминированный перебор всего каталога по nm_id с пагинацией
// на стороне клиента: каждый вызов обрабатывает страницу и возвращает
// next_offset.
func (e *Engine) ForceBatch(ctx context.Context, catalog storage.Catalog, limit, offset int) (*models.BatchReport, error) {
	limit = e.clampLimit(limit)
	if offset < 0 {
		offset = 0
	}

	ids, err := e.repo.SelectPage(ctx, catalog, limit, offset)
	if err != nil {
		return nil, err
	}

	updated, itemErrors, err := e.processIDs(ctx, catalog, ids)
	if err != nil {
		return nil, err
	}

	total, err := e.repo.CountAll(ctx, catalog)
	if err != nil {
		return nil, err
	}

	nextOffset := offset + len(ids)
	done := len(ids) == 0 || nextOffset >= total
	remaining := total - nextOffset
	if remaining < 0 {
		remaining = 0
	}

	return &models.BatchReport{
		Requested:    limit,
		Selected:     len(ids),
		UpdatedCount: len(updated),
		Updated:      updated,
		ErrorsCount:  len(itemErrors),
		Errors:       itemErrors,
		Remaining:    remaining,
		Done:         done,
		Force:        true,
		Offset:       offset,
		NextOffset:   &nextOffset,
		Total:        &total,
	}, nil
}

// FullSweep — серверный цикл до исчерпания выборки. На каталог одновременно
// идёт не больше одного обхода: блокировка берётся без ожидания, занято —
// сразу выходим с locked=true.
func (e *Engine) FullSweep(ctx context.Context, catalog storage.Catalog, limit int, silent bool) (*models.SweepReport, error) {
	limit = e.clampLimit(limit)

	release, acquired, err := e.locker.TryAcquire(ctx, catalog.LockName())
	if err != nil {
		metrics.RecordSweep(catalog.Name(), "failed")
		return nil, err
	}
	if !acquired {
		metrics.RecordSweep(catalog.Name(), "locked")
		return &models.SweepReport{Locked: true}, nil
	}
	defer release()

	countBefore, err := e.repo.CountDue(ctx, catalog, e.cfg.StalenessHours)
	if err != nil {
		metrics.RecordSweep(catalog.Name(), "failed")
		return nil, err
	}

	report := &models.SweepReport{Remaining: countBefore}

	for report.Remaining > 0 && report.Iterations < maxSweepIterations {
		ids, err := e.repo.SelectDue(ctx, catalog, limit, e.cfg.StalenessHours)
		if err != nil {
			metrics.RecordSweep(catalog.Name(), "failed")
			return nil, err
		}
		if len(ids) == 0 {
			break
		}

		updated, itemErrors, err := e.processIDs(ctx, catalog, ids)
		if err != nil {
			metrics.RecordSweep(catalog.Name(), "failed")
			return nil, err
		}

		report.Iterations++
		report.UpdatedTotal += len(updated)
		report.ErrorsTotal += len(itemErrors)
		report.ErrorsLastBatch = itemErrors

		report.Remaining, err = e.repo.CountDue(ctx, catalog, e.cfg.StalenessHours)
		if err != nil {
			metrics.RecordSweep(catalog.Name(), "failed")
			return nil, err
		}

		// пакет целиком из ошибок выборку не сократит — дальше крутиться
		// бессмысленно, оставшиеся доберёт следующий запуск
		if len(updated) == 0 {
			break
		}
	}

	report.Done = report.Remaining == 0
	switch {
	case report.Done:
		metrics.RecordSweep(catalog.Name(), "completed")
	case report.Iterations >= maxSweepIterations:
		metrics.RecordSweep(catalog.Name(), "capped")
	default:
		metrics.RecordSweep(catalog.Name(), "stalled")
	}

	if !silent && countBefore > 0 && report.Done {
		e.dispatchViolations(ctx, catalog)
	}
	return report, nil
}

// dispatchViolations никогда не роняет вызов обновления: и выборка
// нарушителей, и отправка обёрнуты защитно.
func (e *Engine) dispatchViolations(ctx context.Context, catalog storage.Catalog) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Log("violation dispatch panic: %v", r)
		}
	}()

	if !e.window.Contains(e.now()) {
		return
	}

	sellers, err := e.repo.ListViolatingSellers(ctx, catalog)
	if err != nil {
		e.log.Log("violation dispatch: %v", err)
		return
	}
	if len(sellers) == 0 {
		return
	}
	e.dispatcher.NotifyViolations(ctx, sellers)
}

// RunDailySummary — ежедневная сводка; вызывается планировщиком.
func (e *Engine) RunDailySummary(ctx context.Context, catalog storage.Catalog) (int, int, error) {
	sellers, err := e.repo.ListViolatingSellers(ctx, catalog)
	if err != nil {
		return 0, 0, err
	}
	okCount, failCount := e.dispatcher.NotifyDailySummary(ctx, sellers)
	return okCount, failCount, nil
}
