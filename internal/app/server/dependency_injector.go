package app

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/ezgisubasi/multimodal-research-agent/internal/config"
	"github.com/ezgisubasi/multimodal-research-agent/internal/embed"
	"github.com/ezgisubasi/multimodal-research-agent/internal/index/qdrant"
	mio "github.com/ezgisubasi/multimodal-research-agent/internal/libs/minio"
	natsq "github.com/ezgisubasi/multimodal-research-agent/internal/libs/nats"
	rediscli "github.com/ezgisubasi/multimodal-research-agent/internal/libs/redis"
	"github.com/ezgisubasi/multimodal-research-agent/internal/queue"
	documentstore "github.com/ezgisubasi/multimodal-research-agent/internal/store/document"
	filestore "github.com/ezgisubasi/multimodal-research-agent/internal/store/file"
	"github.com/ezgisubasi/multimodal-research-agent/internal/transport"
	"github.com/ezgisubasi/multimodal-research-agent/internal/usecase"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

type Router interface {
	MountRoutes(*http.ServeMux) *http.ServeMux
}

type Closer interface {
	Close(ctx context.Context) error
}

type dependencyInjector struct {
	cfgPath string

	cfg    *config.Config
	logger *slog.Logger

	redis         *redis.Client
	documentStore usecase.DocumentStore

	fileStore  usecase.FileStore
	fileCloser Closer

	natsConn *nats.Conn
	js       nats.JetStreamContext

	analysisQueue usecase.AnalysisQueue
	pageIndex     usecase.PageIndex
	embedder      usecase.QueryEmbedder

	usecase transport.Usecase
	handler transport.Handler
	router  Router
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

func (di *dependencyInjector) DocumentStore(ctx context.Context) usecase.DocumentStore {
	if di.documentStore == nil {
		di.documentStore = documentstore.NewRedisDocumentStore(di.RedisClient(ctx))
	}
	return di.documentStore
}

func (di *dependencyInjector) FileStore(ctx context.Context) usecase.FileStore {
	if di.fileStore == nil {
		cfg := di.Config()

		local, err := filestore.NewLocalStore(cfg.BaseDir)
		if err != nil {
			log.Fatalf("FileStore local: %+v", err)
		}
		di.Logger().Info("initialized local file store", slog.String("base_dir", cfg.BaseDir))

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
		di.Logger().Info("initialized MinIO file store",
			slog.String("endpoint", cfg.MinIO.Endpoint),
			slog.String("bucket", cfg.MinIO.Bucket),
		)

		mirrored := filestore.NewMirroredStore(ctx, local, remote, cfg.MirrorQueueSize, cfg.MirrorWorkers, 3)
		di.fileStore = mirrored
		di.fileCloser = mirrored
		di.Logger().Info("using mirrored file store (local + MinIO)",
			slog.Int("queue_size", cfg.MirrorQueueSize),
			slog.Int("worker_num", cfg.MirrorWorkers),
		)
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

func (di *dependencyInjector) AnalysisQueue(ctx context.Context) usecase.AnalysisQueue {
	if di.analysisQueue == nil {
		di.analysisQueue = queue.New(di.JetStream(ctx), di.Config().NATS.Subject)
	}
	return di.analysisQueue
}

func (di *dependencyInjector) PageIndex(ctx context.Context) usecase.PageIndex {
	if di.pageIndex == nil {
		cfg := di.Config().Qdrant
		client := qdrant.NewClient(cfg.URL, cfg.APIKey, cfg.Collection, cfg.Timeout)
		if err := client.EnsureCollection(ctx); err != nil {
			log.Fatalf("Qdrant EnsureCollection: %+v", err)
		}
		di.pageIndex = client
		di.Logger().Info("connected to qdrant",
			slog.String("url", cfg.URL),
			slog.String("collection", cfg.Collection),
		)
	}
	return di.pageIndex
}

func (di *dependencyInjector) Embedder(ctx context.Context) usecase.QueryEmbedder {
	if di.embedder == nil {
		cfg := di.Config().Embedder
		di.embedder = embed.NewClient(cfg.URL, cfg.Timeout)
	}
	return di.embedder
}

func (di *dependencyInjector) Usecase(ctx context.Context) transport.Usecase {
	if di.usecase == nil {
		cfg := di.Config()
		di.usecase = usecase.New(
			cfg.MaxUploadMb<<20,
			di.DocumentStore(ctx),
			di.FileStore(ctx),
			di.AnalysisQueue(ctx),
			di.PageIndex(ctx),
			di.Embedder(ctx),
		)
	}

	return di.usecase
}

func (di *dependencyInjector) Handler(ctx context.Context) transport.Handler {
	if di.handler == nil {
		di.handler = transport.NewHandler(di.Config().MaxUploadMb, di.Usecase(ctx))
	}

	return di.handler
}

func (di *dependencyInjector) Router(ctx context.Context) Router {
	if di.router == nil {
		di.router = transport.NewRouter(di.Handler(ctx))
	}

	return di.router
}
