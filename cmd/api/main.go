package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jhoicas/Franquicias-api/internal/application/identity"
	"github.com/jhoicas/Franquicias-api/internal/application/inventory"
	"github.com/jhoicas/Franquicias-api/internal/application/transfer"
	"github.com/jhoicas/Franquicias-api/internal/domain/repository"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/kafka"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/Franquicias-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Franquicias-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/Franquicias-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/Franquicias-api/internal/interfaces/http"
	"github.com/jhoicas/Franquicias-api/pkg/config"
	"github.com/jhoicas/Franquicias-api/pkg/logger"
	"github.com/jhoicas/Franquicias-api/pkg/metrics"
)

// storage runner transaccional (o no), repositorios de lectura y contador de respaldo.
type storage struct {
	runner   inventory.TxRunner
	stores   inventory.Stores
	sequence repository.TransferSequence
	ping     func(ctx context.Context) error
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.App.StorageDriver).
		Msg("iniciando aplicación")

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("aplicación finalizada con error")
	}
	log.Info().Msg("aplicación detenida")
}

// run arma las dependencias y sirve HTTP hasta recibir SIGINT/SIGTERM. Los errores se devuelven
// para que los defer cierren el pool, Redis y Kafka antes de salir.
func run(cfg *config.Config, log *logger.Logger) error {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	ctx := context.Background()
	st, err := openStorage(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("almacenamiento: %w", err)
	}
	defer st.close()

	checks := []func(context.Context) error{st.ping}

	// Número de transferencia: Redis si está habilitado; si no, el contador del almacenamiento.
	sequence := st.sequence
	if cfg.Redis.Enabled {
		rseq, err := infraredis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("conexión a Redis: %w", err)
		}
		defer rseq.Close()
		sequence = rseq
		checks = append(checks, rseq.Ping)
	}

	var publisher transfer.EventPublisher = transfer.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kp, err := kafka.NewPublisher(cfg.Kafka, log.Component("kafka"))
		if err != nil {
			return fmt.Errorf("productor Kafka: %w", err)
		}
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("cerrar productor Kafka")
			}
		}()
		publisher = kp
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coordinator := inventory.NewStockCoordinator(st.runner, log.Component("stock"),
		inventory.WithStockMetrics(metrics.NewStockMetrics(reg)),
	)
	transferUC := transfer.NewUseCase(st.runner, coordinator, sequence, identity.ContextProvider{}, log.Component("transfer"),
		transfer.WithPublisher(publisher),
		transfer.WithMetrics(metrics.NewTransferMetrics(reg)),
		transfer.WithNumberPrefix(cfg.Transfer.NumberPrefix),
		transfer.WithMaxItems(cfg.Transfer.MaxItems),
	)
	queryService := transfer.NewQueryService(st.stores.Transfers)

	// PDF: remisión de despacho
	deliveryNotes := transfer.NewDeliveryNoteUseCase(
		st.stores.Transfers, infrapdf.NewMarotoDeliveryNoteGenerator(),
		cfg.Transfer.IssuerName, cfg.Transfer.IssuerTaxID,
	)
	ledger := inventory.NewStockLedger(st.stores.Ledger, nil)
	replenishment := inventory.NewReplenishmentUseCase(st.stores.Products, st.stores.Franchise)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	deps := httpRouter.RouterDeps{
		ServiceName:   cfg.App.Name,
		Transfers:     transferUC,
		Query:         queryService,
		DeliveryNotes: deliveryNotes,
		Coordinator:   coordinator,
		Ledger:        ledger,
		Replenishment: replenishment,
		JWTSecret:     cfg.JWT.Secret,
		Logger:        log.Component("http"),
		Gatherer:      reg,
		HealthCheck: func(ctx context.Context) error {
			var errs []error
			for _, check := range checks {
				errs = append(errs, check(ctx))
			}
			return errors.Join(errs...)
		},
	}
	if cfg.HTTP.Swagger {
		deps.SwaggerFile = "./docs/swagger.json"
	}
	httpRouter.Router(app, deps)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(cfg.HTTP.Addr())
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("servidor HTTP: %w", err)
	case <-quit:
	}

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	return nil
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.App.StorageDriver == config.StorageDriverMemory {
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar y la entrega usa compensaciones")
		store := memory.NewStore()
		return &storage{
			runner:   store,
			stores:   store.Stores(),
			sequence: store,
			ping:     func(context.Context) error { return nil },
			close:    func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool, "up"); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("migraciones aplicadas")
	}
	runner := postgres.NewTxRunner(pool)
	return &storage{
		runner:   runner,
		stores:   runner.Stores(),
		sequence: postgres.NewTransferSequence(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}
