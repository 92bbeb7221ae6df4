package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/commitment"
	"github.com/commitcast/wager-ledger/internal/ledger-service/engine"
	lhttp "github.com/commitcast/wager-ledger/internal/ledger-service/http"
	"github.com/commitcast/wager-ledger/internal/ledger-service/producer"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
	"github.com/commitcast/wager-ledger/internal/shared/cache"
	"github.com/commitcast/wager-ledger/internal/shared/config"
	"github.com/commitcast/wager-ledger/internal/shared/db"
	"github.com/commitcast/wager-ledger/internal/shared/kafka"
	"github.com/commitcast/wager-ledger/internal/shared/logger"
	"github.com/commitcast/wager-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	// Inicializa logger estruturado
	log, err := logger.New("ledger-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("env", cfg.Env))

	// Conexão com Postgres (única fonte de verdade do dinheiro)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis: cache curto de snapshots de commitment
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka writer (tópico wager_placed)
	writer := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerPlaced)
	defer writer.Close()

	// deps
	store := repo.NewPostgres(pg)
	resolver := commitment.NewCached(commitment.New(cfg.ResolverBaseURL), rdb, 3*time.Second)
	publ := producer.NewKafkaPublisher(writer)
	eng := engine.NewWagerEngine(log, store, resolver, publ)

	// HTTP público
	api := lhttp.NewServer(log, eng, cfg.APIKey)
	apiSrv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: api.Router(),
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	log.Info("api listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api srv", zap.Error(err))
	}
}
