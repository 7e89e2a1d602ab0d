package refresh

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"testing"

	_ "modernc.org/sqlite"

	"pricewatch_api/config/values"
	"pricewatch_api/internal/pricing/business/models"
	"pricewatch_api/internal/pricing/business/services/alerts"
	"pricewatch_api/internal/pricing/business/services/parse"
	"pricewatch_api/internal/pricing/business/services/pricing"
	"pricewatch_api/internal/pricing/storage"
	"pricewatch_api/pkg/logger"
)

const testSchema = `
CREATE TABLE products_main (
	nm_id BIGINT PRIMARY KEY,
	brand TEXT,
	title TEXT,
	seller_id BIGINT,
	seller_name TEXT,
	price_before_discount NUMERIC(12,2) DEFAULT 0,
	price_after_seller_discount NUMERIC(12,2) DEFAULT 0,
	ui_price BIGINT,
	rrc NUMERIC(12,2),
	sales_24h BIGINT,
	updated_at TIMESTAMP
);`

// fakeSource отдаёт заготовленные ответы и считает обращения по артикулу.
type fakeSource struct {
	results map[int64]*models.FetchResult
	errs    map[int64]error
	calls   map[int64]int
}

func (s *fakeSource) Fetch(_ context.Context, nmID int64) (*models.FetchResult, error) {
	if s.calls == nil {
		s.calls = make(map[int64]int)
	}
	s.calls[nmID]++
	if err, ok := s.errs[nmID]; ok {
		return nil, err
	}
	if fr, ok := s.results[nmID]; ok {
		return fr, nil
	}
	return &models.FetchResult{NmID: nmID, Title: "Товар", PriceAfterDiscount: 100}, nil
}

type fakeDispatcher struct {
	violations [][]models.ViolatingSeller
	summaries  int
}

func (d *fakeDispatcher) NotifyViolations(_ context.Context, sellers []models.ViolatingSeller) {
	d.violations = append(d.violations, sellers)
}

func (d *fakeDispatcher) NotifyDailySummary(_ context.Context, sellers []models.ViolatingSeller) (int, int) {
	d.summaries++
	return len(sellers), 0
}

type engineEnv struct {
	engine     *Engine
	repo       *storage.ProductRepository
	catalog    storage.Catalog
	source     *fakeSource
	dispatcher *fakeDispatcher
	locker     *storage.LocalLocker
}

func newEngineEnv(t *testing.T, cfg values.PricingValues, alerting values.AlertingValues) *engineEnv {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatalf("schema: %v", err)
	}

	resolver, err := storage.NewResolver(values.CatalogValues{Names: []string{"main"}})
	if err != nil {
		t.Fatal(err)
	}

	env := &engineEnv{
		repo:       storage.NewProductRepository(db),
		catalog:    resolver.Default(),
		source:     &fakeSource{},
		dispatcher: &fakeDispatcher{},
		locker:     storage.NewLocalLocker(),
	}
	env.engine = NewEngine(
		env.repo,
		env.source,
		pricing.NewCalculator(cfg),
		parse.NewTitleFloorService(),
		env.dispatcher,
		alerts.NewWindow(alerting),
		env.locker,
		cfg,
		logger.NewLogger(io.Discard, "[test]"),
	)
	return env
}

func alwaysOpen() values.AlertingValues {
	return values.AlertingValues{ActiveHoursStart: 0, ActiveHoursEnd: 24}
}

func seed(t *testing.T, env *engineEnv, p models.Product) {
	t.Helper()
	if err := env.repo.Upsert(context.Background(), env.catalog, p); err != nil {
		t.Fatal(err)
	}
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func TestRefreshBatchUpdatesDueAndDispatches(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	// Один товар в очереди, два вне её: проверенный и помеченный недоступным.
	seed(t, env, models.Product{NmID: 1, Title: "Крем 500"})
	seed(t, env, models.Product{NmID: 2, PriceAfterDiscount: 900, DisplayPrice: int64Ptr(900)})
	seed(t, env, models.Product{NmID: 3, PriceAfterDiscount: models.Unavailable})

	env.source.results = map[int64]*models.FetchResult{
		1: {
			NmID: 1, Brand: "Brand", Title: "Крем 500",
			PriceBeforeDiscount: 1250, PriceAfterDiscount: 1000,
			SellerID: int64Ptr(77), SellerName: func() *string { s := "Seller"; return &s }(),
		},
	}

	report, err := env.engine.RefreshBatch(ctx, env.catalog, 1, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Selected != 1 || report.UpdatedCount != 1 || report.ErrorsCount != 0 {
		t.Fatalf("report = %+v, want one clean update", report)
	}
	if !report.Done || report.Remaining != 0 {
		t.Fatalf("report = %+v, want done with remaining 0", report)
	}
	if env.source.calls[2] != 0 || env.source.calls[3] != 0 {
		t.Errorf("fetched out-of-queue products: calls = %v", env.source.calls)
	}

	p, err := env.repo.Get(ctx, env.catalog, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.DisplayPrice == nil || *p.DisplayPrice != 1000 {
		t.Errorf("ui_price = %v, want 1000", p.DisplayPrice)
	}
	// Эвристика по названию: "Крем 500" -> РРЦ 1300.
	if p.FloorPrice == nil || *p.FloorPrice != 1300 {
		t.Errorf("rrc = %v, want 1300 from title heuristic", p.FloorPrice)
	}

	// 1000 < 1300 — нарушение, очередь опустела в этом же вызове: одна рассылка.
	if len(env.dispatcher.violations) != 1 {
		t.Fatalf("dispatches = %d, want 1", len(env.dispatcher.violations))
	}
	if len(env.dispatcher.violations[0]) != 1 || env.dispatcher.violations[0][0].SellerID != 77 {
		t.Errorf("dispatched sellers = %+v", env.dispatcher.violations[0])
	}
}

func TestRefreshBatchSilentSuppressesDispatch(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())

	seed(t, env, models.Product{NmID: 1, Title: "Крем 500", SellerID: int64Ptr(5)})
	env.source.results = map[int64]*models.FetchResult{
		1: {NmID: 1, Title: "Крем 500", PriceAfterDiscount: 1000, SellerID: int64Ptr(5)},
	}

	report, err := env.engine.RefreshBatch(context.Background(), env.catalog, 0, true)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Done {
		t.Fatalf("report = %+v, want done", report)
	}
	if len(env.dispatcher.violations) != 0 {
		t.Errorf("silent run dispatched %d times", len(env.dispatcher.violations))
	}
}

func TestRefreshBatchClosedWindowSuppressesDispatch(t *testing.T) {
	// start == end — окно всегда закрыто.
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20},
		values.AlertingValues{ActiveHoursStart: 9, ActiveHoursEnd: 9})

	seed(t, env, models.Product{NmID: 1, Title: "Крем 500", SellerID: int64Ptr(5)})
	env.source.results = map[int64]*models.FetchResult{
		1: {NmID: 1, Title: "Крем 500", PriceAfterDiscount: 1000, SellerID: int64Ptr(5)},
	}

	if _, err := env.engine.RefreshBatch(context.Background(), env.catalog, 0, false); err != nil {
		t.Fatal(err)
	}
	if len(env.dispatcher.violations) != 0 {
		t.Errorf("dispatched outside active hours")
	}
}

func TestRefreshBatchFetchErrorKeepsProductDue(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	seed(t, env, models.Product{NmID: 1})
	env.source.errs = map[int64]error{1: fmt.Errorf("timeout")}

	report, err := env.engine.RefreshBatch(ctx, env.catalog, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.ErrorsCount != 1 || report.Errors[0].NmID != 1 {
		t.Fatalf("report errors = %+v, want nm_id 1", report.Errors)
	}
	if report.Done || report.Remaining != 1 {
		t.Fatalf("report = %+v, want product still due", report)
	}
	if len(env.dispatcher.violations) != 0 {
		t.Errorf("dispatched despite non-empty queue")
	}
}

func TestRefreshOneUnavailableSetsSentinel(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	seed(t, env, models.Product{NmID: 1})
	env.source.results = map[int64]*models.FetchResult{
		1: {NmID: 1, Title: "Товар"}, // без цен
	}

	p, err := env.engine.RefreshOne(ctx, env.catalog, 1)
	if err != nil {
		t.Fatal(err)
	}
	if p.PriceAfterDiscount != models.Unavailable {
		t.Errorf("price_after_seller_discount = %v, want sentinel -1", p.PriceAfterDiscount)
	}
	if p.DisplayPrice != nil {
		t.Errorf("ui_price = %v, want nil for unavailable product", *p.DisplayPrice)
	}

	// Сентинел выводит товар из очереди.
	due, err := env.repo.CountDue(ctx, env.catalog, 0)
	if err != nil {
		t.Fatal(err)
	}
	if due != 0 {
		t.Errorf("due = %d after sentinel, want 0", due)
	}
}

func TestFullSweepDrainsQueueInBatches(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	for id := int64(1); id <= 5; id++ {
		seed(t, env, models.Product{NmID: id})
	}
	// Один товар нарушает РРЦ после обновления.
	if err := env.repo.SetFloorPrice(ctx, env.catalog, 1, float64Ptr(500)); err != nil {
		t.Fatal(err)
	}
	env.source.results = map[int64]*models.FetchResult{
		1: {NmID: 1, Title: "Товар", PriceAfterDiscount: 400, SellerID: int64Ptr(9)},
	}

	report, err := env.engine.FullSweep(ctx, env.catalog, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Locked {
		t.Fatal("sweep reported locked on free lock")
	}
	if !report.Done || report.Remaining != 0 {
		t.Fatalf("report = %+v, want drained queue", report)
	}
	if report.Iterations != 3 || report.UpdatedTotal != 5 {
		t.Fatalf("report = %+v, want 3 iterations over 5 products", report)
	}
	for id := int64(1); id <= 5; id++ {
		if env.source.calls[id] != 1 {
			t.Errorf("nm_id=%d fetched %d times, want once", id, env.source.calls[id])
		}
	}
	if len(env.dispatcher.violations) != 1 {
		t.Errorf("dispatches = %d, want exactly 1 after completed sweep", len(env.dispatcher.violations))
	}
}

func TestFullSweepLockedFailsFast(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	seed(t, env, models.Product{NmID: 1})

	release, acquired, err := env.locker.TryAcquire(ctx, env.catalog.LockName())
	if err != nil || !acquired {
		t.Fatalf("pre-acquire: acquired=%v err=%v", acquired, err)
	}
	defer release()

	report, err := env.engine.FullSweep(ctx, env.catalog, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Locked {
		t.Fatalf("report = %+v, want locked", report)
	}
	if report.Iterations != 0 || len(env.source.calls) != 0 {
		t.Errorf("locked sweep did work: %+v, calls=%v", report, env.source.calls)
	}
}

func TestFullSweepReleasesLock(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	if _, err := env.engine.FullSweep(ctx, env.catalog, 0, true); err != nil {
		t.Fatal(err)
	}

	release, acquired, err := env.locker.TryAcquire(ctx, env.catalog.LockName())
	if err != nil {
		t.Fatal(err)
	}
	if !acquired {
		t.Fatal("lock still held after sweep finished")
	}
	release()
}

func TestFullSweepStallsOnPersistentErrors(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	seed(t, env, models.Product{NmID: 1})
	seed(t, env, models.Product{NmID: 2})
	env.source.errs = map[int64]error{
		1: fmt.Errorf("unreachable"),
		2: fmt.Errorf("unreachable"),
	}

	report, err := env.engine.FullSweep(ctx, env.catalog, 10, false)
	if err != nil {
		t.Fatal(err)
	}
	if report.Done {
		t.Fatalf("report = %+v, want unfinished", report)
	}
	if report.Iterations != 1 {
		t.Fatalf("iterations = %d, want stall after first all-error batch", report.Iterations)
	}
	if report.Remaining != 2 || report.ErrorsTotal != 2 {
		t.Fatalf("report = %+v, want both products still due", report)
	}
	if len(env.dispatcher.violations) != 0 {
		t.Errorf("dispatched after stalled sweep")
	}
}

func TestForceBatchPaginatesWholeCatalog(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	// Все товары уже обновлены: force всё равно обходит каждый.
	for id := int64(1); id <= 5; id++ {
		seed(t, env, models.Product{NmID: id, PriceAfterDiscount: 100, DisplayPrice: int64Ptr(100)})
	}

	offset := 0
	for steps := 0; ; steps++ {
		if steps > 10 {
			t.Fatal("pagination did not terminate")
		}
		report, err := env.engine.ForceBatch(ctx, env.catalog, 2, offset)
		if err != nil {
			t.Fatal(err)
		}
		if !report.Force || report.NextOffset == nil || report.Total == nil {
			t.Fatalf("report = %+v, want force pagination fields", report)
		}
		if report.Done {
			if *report.NextOffset < *report.Total && report.Selected != 0 {
				t.Fatalf("done with next_offset %d < total %d", *report.NextOffset, *report.Total)
			}
			break
		}
		offset = *report.NextOffset
	}

	for id := int64(1); id <= 5; id++ {
		if env.source.calls[id] != 1 {
			t.Errorf("nm_id=%d fetched %d times, want exactly once", id, env.source.calls[id])
		}
	}
}

func TestForceBatchPastEndIsDone(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())

	seed(t, env, models.Product{NmID: 1, PriceAfterDiscount: 100, DisplayPrice: int64Ptr(100)})

	report, err := env.engine.ForceBatch(context.Background(), env.catalog, 10, 50)
	if err != nil {
		t.Fatal(err)
	}
	if !report.Done || report.Selected != 0 || report.Remaining != 0 {
		t.Fatalf("report = %+v, want empty done page", report)
	}
}

func TestRunDailySummary(t *testing.T) {
	env := newEngineEnv(t, values.PricingValues{BatchLimit: 20}, alwaysOpen())
	ctx := context.Background()

	seed(t, env, models.Product{
		NmID: 1, SellerID: int64Ptr(3),
		PriceAfterDiscount: 400, DisplayPrice: int64Ptr(400),
	})
	if err := env.repo.SetFloorPrice(ctx, env.catalog, 1, float64Ptr(900)); err != nil {
		t.Fatal(err)
	}

	okCount, failCount, err := env.engine.RunDailySummary(ctx, env.catalog)
	if err != nil {
		t.Fatal(err)
	}
	if env.dispatcher.summaries != 1 || okCount != 1 || failCount != 0 {
		t.Fatalf("summary: ok=%d fail=%d calls=%d", okCount, failCount, env.dispatcher.summaries)
	}
}
