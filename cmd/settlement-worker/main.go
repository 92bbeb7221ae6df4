package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/engine"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
	"github.com/commitcast/wager-ledger/internal/settlement-worker/consumer"
	"github.com/commitcast/wager-ledger/internal/shared/cache"
	"github.com/commitcast/wager-ledger/internal/shared/config"
	"github.com/commitcast/wager-ledger/internal/shared/db"
	"github.com/commitcast/wager-ledger/internal/shared/kafka"
	"github.com/commitcast/wager-ledger/internal/shared/logger"
	"github.com/commitcast/wager-ledger/internal/shared/metrics"
)

func main() {
	cfg := config.Load()

	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: mesmo ledger do serviço HTTP; o worker só escreve via SettlePool
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if err := db.Migrate(context.Background(), pg); err != nil {
		log.Fatal("migrate", zap.Error(err))
	}

	// Redis: broadcast do resultado de liquidação pra UI
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka consumer: eventos commitment_resolved disparados pelo resolver
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicCommitmentResolved, "settlement-worker")
	defer reader.Close()

	// Kafka producer: publica wager_settled e, opcionalmente, envia pra DLQ
	settledWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettled)
	defer settledWriter.Close()

	// nil tipado num campo de interface não é nil; só atribui se a DLQ existe
	var dlqWriter kafka.MessageWriter
	if cfg.TopicCommitmentResolvedDLQ != "" {
		w := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicCommitmentResolvedDLQ)
		defer w.Close()
		dlqWriter = w
	}

	// Servidor de métricas e health check
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	log.Info("metrics/health listening", zap.String("addr", metricsSrv.Addr))

	settler := engine.NewSettlementEngine(log, repo.NewPostgres(pg))

	proc := &consumer.Processor{
		Log:           log,
		Reader:        reader,
		Settler:       settler,
		SettledWriter: settledWriter,
		DLQWriter:     dlqWriter,
		Broadcast:     cache.NewBroadcaster(rdb),
		Channel:       cfg.RedisPubSubChannel,
	}

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicCommitmentResolved),
		zap.String("publish", cfg.TopicWagerSettled),
	)

	if err := proc.Run(context.Background()); err != nil {
		log.Fatal("consumer loop", zap.Error(err))
	}
}
