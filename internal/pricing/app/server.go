package app

import (
	"io"
	"log"
	"net/http"

	"pricewatch_api/config"
	"pricewatch_api/internal/pricing/app/web"
	"pricewatch_api/internal/pricing/app/web/handlers"
	"pricewatch_api/internal/pricing/business/services/alerts"
	"pricewatch_api/internal/pricing/business/services/fetch"
	"pricewatch_api/internal/pricing/business/services/importer"
	"pricewatch_api/internal/pricing/business/services/parse"
	"pricewatch_api/internal/pricing/business/services/pricing"
	"pricewatch_api/internal/pricing/business/services/refresh"
	"pricewatch_api/internal/pricing/scheduler"
	"pricewatch_api/internal/pricing/storage"
	migrate "pricewatch_api/migrations/pricing"
	"pricewatch_api/pkg/dbconnect"
	"pricewatch_api/pkg/dbconnect/migration"
	"pricewatch_api/pkg/logger"
)

type PricewatchServer struct {
	dbconnect.Database
	cfg    *config.AppConfig
	log    logger.Logger
	writer io.Writer
}

func NewPricewatchServer(connector dbconnect.Database, cfg *config.AppConfig, writer io.Writer) *PricewatchServer {
	_log := logger.NewLogger(writer, "[PricewatchServer]")
	return &PricewatchServer{Database: connector, cfg: cfg, log: _log, writer: writer}
}

func (s *PricewatchServer) Run() {
	db, err := s.Connect()
	if err != nil {
		log.Fatalf("Error connecting to PostgreSQL: %s", err)
	}
	defer db.Close()

	resolver, err := storage.NewResolver(s.cfg.Pricewatch.Catalogs)
	if err != nil {
		log.Fatalf("Invalid catalog configuration: %s", err)
	}

	migrationApply := []migration.MigrationInterface{
		&migrate.CreateMigrationsInfra{},
		&migrate.CreateAdminsTable{},
	}
	for _, catalog := range resolver.All() {
		migrationApply = append(migrationApply, &migrate.CreateProductsTable{Catalog: catalog})
	}
	for _, _migration := range migrationApply {
		if err := _migration.UpMigration(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}
	log.Println("Pricewatch migrations applied successfully!")

	productRepo := storage.NewProductRepository(db)
	adminRepo := storage.NewAdminRepository(db, s.cfg.Telegram.SuperAdminID)
	locker := storage.NewPgAdvisoryLocker(db)

	calc := pricing.NewCalculator(s.cfg.Pricewatch.Pricing)
	floorService := parse.NewTitleFloorService()
	cardClient := fetch.NewCardClient("")
	window := alerts.NewWindow(s.cfg.Pricewatch.Alerting)
	dispatcher := alerts.NewTelegramDispatcher(
		s.cfg.Telegram.BotToken, "", adminRepo, logger.NewLogger(s.writer, "[Telegram]"))

	engine := refresh.NewEngine(
		productRepo, cardClient, calc, floorService,
		dispatcher, window, locker,
		s.cfg.Pricewatch.Pricing, logger.NewLogger(s.writer, "[RefreshEngine]"))

	importService := importer.NewService(productRepo, logger.NewLogger(s.writer, "[Importer]"))

	jobs := scheduler.NewScheduler(
		engine, resolver, window, s.cfg.Pricewatch.Schedule,
		logger.NewLogger(s.writer, "[Scheduler]"))
	if err := jobs.Start(); err != nil {
		log.Fatalf("Scheduler failed to start: %v", err)
	}
	defer jobs.Stop()

	staleness := s.cfg.Pricewatch.Pricing.StalenessHours
	router := web.SetupRoutes(
		handlers.NewProductHandler(productRepo, engine, resolver),
		handlers.NewRefreshHandler(engine, resolver),
		handlers.NewViolationHandler(productRepo, resolver, staleness),
		handlers.NewImportHandler(importService, resolver),
		handlers.NewAdminHandler(adminRepo),
	)

	s.log.Log("listening on %s", s.cfg.ServerAddr)
	log.Fatal(http.ListenAndServe(s.cfg.ServerAddr, router))
}
