package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	appfiscal "github.com/jhoicas/motor-fiscal/internal/application/fiscal"
	fiscaldom "github.com/jhoicas/motor-fiscal/internal/domain/fiscal"
	"github.com/jhoicas/motor-fiscal/internal/domain/repository"
	"github.com/jhoicas/motor-fiscal/internal/infrastructure/erp"
	infrafirestore "github.com/jhoicas/motor-fiscal/internal/infrastructure/firestore"
	"github.com/jhoicas/motor-fiscal/internal/infrastructure/jsonlogic"
	"github.com/jhoicas/motor-fiscal/internal/infrastructure/postgres"
	infrayaml "github.com/jhoicas/motor-fiscal/internal/infrastructure/yaml"
	httpRouter "github.com/jhoicas/motor-fiscal/internal/interfaces/http"
	"github.com/jhoicas/motor-fiscal/pkg/config"
	"github.com/jhoicas/motor-fiscal/pkg/logger"
)

func main() {
	// .env local opcional; en despliegue las variables vienen del entorno.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("rule_source", cfg.Fiscal.RuleSource).
		Msg("iniciando aplicación")

	// Constantes fiscales: fábrica < archivo YAML < FISCAL_HOME_STATE
	defaults, err := infrayaml.LoadDefaults(cfg.Fiscal.DefaultsFile, fiscaldom.DefaultDefaults())
	if err != nil {
		log.Fatal().Err(err).Msg("cargar constantes fiscales")
	}
	if cfg.Fiscal.HomeState != "" {
		defaults.HomeState = cfg.Fiscal.HomeState
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	referenceRepo := postgres.NewFiscalReferenceRepository(pool)

	var external repository.ICMSRuleItemRepository
	switch cfg.Fiscal.RuleSource {
	case config.RuleSourceERP:
		db, err := erp.NewDB(cfg.ERP.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión al ERP")
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		external = erp.NewRuleSource(db)
	case config.RuleSourceFirestore:
		client, err := infrafirestore.NewClient(ctx, cfg.Firestore.ProjectID, cfg.Firestore.DatabaseID)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Firestore")
		}
		defer client.Close()
		external = infrafirestore.NewRuleSource(client, cfg.Firestore.Collection)
	}

	var customRules appfiscal.CustomRuleEvaluator
	if cfg.Audit.RulesFile != "" {
		pack, err := infrayaml.LoadRulePack(cfg.Audit.RulesFile)
		if err != nil {
			log.Fatal().Err(err).Msg("cargar reglas de auditoría")
		}
		evaluator, err := jsonlogic.NewEvaluator(pack, log)
		if err != nil {
			log.Fatal().Err(err).Msg("reglas de auditoría inválidas")
		}
		log.Info().Int("rules", evaluator.Len()).Str("version", pack.Version).Msg("reglas de auditoría cargadas")
		customRules = evaluator
	}

	resolver := appfiscal.NewRuleResolver(external, referenceRepo, defaults, cfg.Fiscal.ExternalTimeout, log)
	aggregator := appfiscal.NewFiscalDataAggregator(referenceRepo, resolver, defaults, log)
	ruleQueryUC := appfiscal.NewRuleQueryUseCase(referenceRepo, resolver, log)
	taxUC := appfiscal.NewTaxUseCase(aggregator, defaults, log)
	auditUC := appfiscal.NewAuditUseCase(aggregator, customRules, defaults, cfg.Audit.Concurrency, log)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(cfg.HTTP.DocsFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.HTTP.DocsFile,
			Path:     "docs",
			Title:    "Motor Fiscal API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "home_state": defaults.HomeState})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Aggregator: aggregator,
		RuleQuery:  ruleQueryUC,
		Taxes:      taxUC,
		Audit:      auditUC,
		Logger:     log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
