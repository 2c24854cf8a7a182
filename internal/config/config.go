package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	BaseDir string `yaml:"base_dir"`

	MaxUploadMb int64 `yaml:"max_upload_mb"`

	MirrorQueueSize int `yaml:"mirror_queue_size"`
	MirrorWorkers   int `yaml:"mirror_workers"`

	Worker Worker `yaml:"worker"`

	Redis    Redis    `yaml:"redis"`
	MinIO    MinIO    `yaml:"minio"`
	NATS     NATS     `yaml:"nats"`
	GROBID   GROBID   `yaml:"grobid"`
	Qdrant   Qdrant   `yaml:"qdrant"`
	Embedder Embedder `yaml:"embedder"`
}

type Worker struct {
	PoolSize          int           `yaml:"pool_size"`
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`
}

type Redis struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	PingTimeout time.Duration `yaml:"ping_timeout"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	UseSSL          bool   `yaml:"use_ssl"`
	Bucket          string `yaml:"bucket"`
}

type NATS struct {
	URL           string `yaml:"url"`
	QueueName     string `yaml:"queue_name"`
	MaxReconnects int    `yaml:"max_reconnects"`
	Subject       string `yaml:"subject"`
}

type GROBID struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Qdrant struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Embedder struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

func MustLoad(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("config: cannot read file %q: %v", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	return cfg
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.BaseDir == "" {
		cfg.BaseDir = "data/papers"
	}
	if cfg.MaxUploadMb <= 0 {
		cfg.MaxUploadMb = 50
	}
	if cfg.MirrorQueueSize <= 0 {
		cfg.MirrorQueueSize = 100
	}
	if cfg.MirrorWorkers <= 0 {
		cfg.MirrorWorkers = 2
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 2
	}
	if cfg.Worker.ProcessingTimeout <= 0 {
		cfg.Worker.ProcessingTimeout = 5 * time.Minute
	}
	if cfg.Redis.PingTimeout <= 0 {
		cfg.Redis.PingTimeout = 10 * time.Second
	}
	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "papers.analyze"
	}
	if cfg.NATS.QueueName == "" {
		cfg.NATS.QueueName = "paper-analyzer"
	}
	if cfg.GROBID.Timeout <= 0 {
		cfg.GROBID.Timeout = 60 * time.Second
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = "research_papers"
	}
	if cfg.Qdrant.Timeout <= 0 {
		cfg.Qdrant.Timeout = 30 * time.Second
	}
	if cfg.Embedder.Timeout <= 0 {
		cfg.Embedder.Timeout = 2 * time.Minute
	}
}
