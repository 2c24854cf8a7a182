package app

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/ezgisubasi/multimodal-research-agent/internal/analysis/grobid"
	"github.com/ezgisubasi/multimodal-research-agent/internal/config"
	"github.com/ezgisubasi/multimodal-research-agent/internal/embed"
	"github.com/ezgisubasi/multimodal-research-agent/internal/index/qdrant"
	mio "github.com/ezgisubasi/multimodal-research-agent/internal/libs/minio"
	natsq "github.com/ezgisubasi/multimodal-research-agent/internal/libs/nats"
	rediscli "github.com/ezgisubasi/multimodal-research-agent/internal/libs/redis"
	"github.com/ezgisubasi/multimodal-research-agent/internal/queue"
	documentstore "github.com/ezgisubasi/multimodal-research-agent/internal/store/document"
	filestore "github.com/ezgisubasi/multimodal-research-agent/internal/store/file"
	"github.com/ezgisubasi/multimodal-research-agent/internal/worker"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

type dependencyInjector struct {
	cfgPath string

	cfg    *config.Config
	logger *slog.Logger

	redis         *redis.Client
	documentStore worker.DocumentStore

	fileStore worker.FileStore

	natsConn *nats.Conn
	js       nats.JetStreamContext

	extractor worker.TextExtractor
	embedder  worker.PageEmbedder
	pageIndex worker.PageIndex

	worker *worker.Worker
}

func newDI(cfgPath string) *dependencyInjector {
	return &dependencyInjector{cfgPath: cfgPath}
}

func (di *dependencyInjector) Config() *config.Config {
	if di.cfg == nil {
		di.cfg = config.MustLoad(di.cfgPath)
	}

	return di.cfg
}

func (di *dependencyInjector) Logger() *slog.Logger {
	if di.logger == nil {
		di.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	slog.SetDefault(di.logger)
	return di.logger
}

func (di *dependencyInjector) RedisClient(ctx context.Context) *redis.Client {
	if di.redis == nil {
		cfg := di.Config().Redis
		client, err := rediscli.NewClient(rediscli.Config{
			Addr:        cfg.Addr,
			Password:    cfg.Password,
			DB:          cfg.DB,
			PingTimeout: cfg.PingTimeout,
		})
		if err != nil {
			log.Fatalf("redis client: %+v", err)
		}

		di.redis = client
		di.Logger().Info("connected to redis", slog.String("addr", cfg.Addr))
	}
	return di.redis
}

func (di *dependencyInjector) DocumentStore(ctx context.Context) worker.DocumentStore {
	if di.documentStore == nil {
		di.documentStore = documentstore.NewRedisDocumentStore(di.RedisClient(ctx))
	}
	return di.documentStore
}

func (di *dependencyInjector) FileStore(ctx context.Context) worker.FileStore {
	if di.fileStore == nil {
		cfg := di.Config()

		// The indexer may run on a different node than the API server;
		// reads go through the mirror so either copy satisfies them.
		local, err := filestore.NewLocalStore(cfg.BaseDir)
		if err != nil {
			log.Fatalf("FileStore local: %+v", err)
		}

		remote, err := filestore.NewMinIOStore(ctx, mio.Config{
			Endpoint:        cfg.MinIO.Endpoint,
			AccessKeyID:     cfg.MinIO.AccessKeyID,
			SecretAccessKey: cfg.MinIO.SecretAccessKey,
			UseSSL:          cfg.MinIO.UseSSL,
			Bucket:          cfg.MinIO.Bucket,
			Prefix:          cfg.BaseDir,
		})
		if err != nil {
			log.Fatalf("FileStore minio: %+v", err)
		}

		di.fileStore = filestore.NewMirroredStore(ctx, local, remote, cfg.MirrorQueueSize, cfg.MirrorWorkers, 3)
	}

	return di.fileStore
}

func (di *dependencyInjector) NATSConn(ctx context.Context) *nats.Conn {
	if di.natsConn == nil {
		cfg := di.Config()
		nc, err := natsq.NewConnect(cfg.NATS.URL, natsq.Config{
			Name:          cfg.NATS.QueueName,
			MaxReconnects: cfg.NATS.MaxReconnects,
		})
		if err != nil {
			log.Fatalf("NATS connect: %+v", err)
		}
		di.natsConn = nc
	}
	return di.natsConn
}

func (di *dependencyInjector) JetStream(ctx context.Context) nats.JetStreamContext {
	if di.js == nil {
		js, err := natsq.NewAnalysisStream(di.NATSConn(ctx), queue.StreamName, di.Config().NATS.Subject)
		if err != nil {
			log.Fatalf("DI JetStream: %+v", err)
		}

		di.js = js
	}
	return di.js
}

func (di *dependencyInjector) TextExtractor(ctx context.Context) worker.TextExtractor {
	if di.extractor == nil {
		cfg := di.Config().GROBID
		di.extractor = grobid.NewClient(cfg.URL, cfg.Timeout)
	}
	return di.extractor
}

func (di *dependencyInjector) Embedder(ctx context.Context) worker.PageEmbedder {
	if di.embedder == nil {
		cfg := di.Config().Embedder
		di.embedder = embed.NewClient(cfg.URL, cfg.Timeout)
	}
	return di.embedder
}

func (di *dependencyInjector) PageIndex(ctx context.Context) worker.PageIndex {
	if di.pageIndex == nil {
		cfg := di.Config().Qdrant
		client := qdrant.NewClient(cfg.URL, cfg.APIKey, cfg.Collection, cfg.Timeout)
		if err := client.EnsureCollection(ctx); err != nil {
			log.Fatalf("Qdrant EnsureCollection: %+v", err)
		}
		di.pageIndex = client
	}
	return di.pageIndex
}

func (di *dependencyInjector) Worker(ctx context.Context) *worker.Worker {
	if di.worker == nil {
		cfg := di.Config()
		di.worker = worker.New(
			di.JetStream(ctx),
			cfg.NATS.Subject,
			cfg.Worker.PoolSize,
			cfg.Worker.ProcessingTimeout,
			di.DocumentStore(ctx),
			di.FileStore(ctx),
			di.TextExtractor(ctx),
			di.Embedder(ctx),
			di.PageIndex(ctx),
		)
	}

	return di.worker
}
