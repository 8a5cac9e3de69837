package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"censorship/pkg/api"
	"censorship/pkg/cache"
	"censorship/pkg/censor"
	"censorship/pkg/dictionary"
	"censorship/pkg/dictionary/postgres"
	"censorship/pkg/events"
)

type Config struct {
	ServiceName string `toml:"serviceName"`

	// Source is one of file, postgres, mongo or remote.
	Source         string          `toml:"source"`
	CensorConfPath string          `toml:"censorConfPath"`
	RemoteURL      string          `toml:"remoteURL"`
	Postgres       postgres.Config `toml:"postgres"`

	FillValue string `toml:"fillValue"`
	FullWords bool   `toml:"fullWords"`

	HTTPAddr   string `toml:"httpAddr"`
	LogLevel   string `toml:"logLevel"`
	KafkaAddr  string `toml:"kafkaAddr"`
	KafkaTopic string `toml:"kafkaTopic"`
	KafkaBatch int    `toml:"kafkaBatch"`

	RedisAddr string `toml:"redisAddr"`
	CacheTTL  string `toml:"cacheTTL"`
}

func main() {
	var (
		configPath     string
		censorConfPath string
		source         string
		httpAddr       string
		logLevel       string
		kafkaAddr      string
		kafkaTopic     string
		kafkaBatch     int
		redisAddr      string
		fill           string
		fullWords      bool
	)

	flag.StringVar(&configPath, "servconf", "cmd/server/config.toml", "Path to TOML config file")
	flag.StringVar(&censorConfPath, "censconf", "", "Path to JSON dictionary file")
	flag.StringVar(&source, "source", "", "Dictionary source: file, postgres, mongo, remote.")
	flag.StringVar(&httpAddr, "http", "", "HTTP server address in the form 'host:port'.")
	flag.StringVar(&logLevel, "log", "", "Log level: debug, info, warn, error.")
	flag.StringVar(&kafkaAddr, "kafka", "", "Kafka server address in the form 'host:port'.")
	flag.StringVar(&kafkaTopic, "topic", "", "Kafka topic.")
	flag.IntVar(&kafkaBatch, "batch", 0, "Kafka batch size.")
	flag.StringVar(&redisAddr, "redis", "", "Redis address in the form 'host:port'.")
	flag.StringVar(&fill, "fill", "", "Fill value used to mask banned words.")
	flag.BoolVar(&fullWords, "fullwords", false, "Match banned words as full words only.")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warnf("[server] failed to load .env file: %v", err)
	}

	var cfg Config
	if _, err := toml.DecodeFile(configPath, &cfg); err != nil {
		log.Fatalf("[server] failed to load config file %s: %v", configPath, err)
	}

	// Override config with flags if set
	if censorConfPath != "" {
		cfg.CensorConfPath = censorConfPath
	}
	if source != "" {
		cfg.Source = source
	}
	if httpAddr != "" {
		cfg.HTTPAddr = httpAddr
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if kafkaAddr != "" {
		cfg.KafkaAddr = kafkaAddr
	}
	if kafkaTopic != "" {
		cfg.KafkaTopic = kafkaTopic
	}
	if kafkaBatch != 0 {
		cfg.KafkaBatch = kafkaBatch
	}
	if redisAddr != "" {
		cfg.RedisAddr = redisAddr
	}
	if fill != "" {
		cfg.FillValue = fill
	}
	if fullWords {
		cfg.FullWords = true
	}
	if pass := os.Getenv("POSTGRES_PASSWORD"); pass != "" {
		cfg.Postgres.Password = pass
	}

	if !strings.Contains(cfg.HTTPAddr, ":") {
		log.Warn("[server] use ':' before port number, e.g. ':8080'")
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "info":
		log.SetLevel(log.InfoLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var c = censor.New()
	if cfg.FillValue != "" {
		if err := c.SetFillValue(cfg.FillValue); err != nil {
			log.Fatalf("[server] invalid fill value: %v", err)
		}
	}

	src, store, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		log.Fatalf("[server] failed to open %s dictionary source: %v", cfg.Source, err)
	}
	defer closeSource()

	if err := dictionary.Apply(ctx, src, c); err != nil {
		log.Fatalf("[server] failed to load dictionary: %v", err)
	}

	opts := api.Options{Store: store, FullWords: cfg.FullWords}

	if cfg.KafkaAddr != "" && cfg.KafkaTopic != "" {
		kafkaWriter := &kafka.Writer{
			Addr:      kafka.TCP(cfg.KafkaAddr),
			Topic:     cfg.KafkaTopic,
			BatchSize: cfg.KafkaBatch,
		}
		defer kafkaWriter.Close()

		err := events.CreateTopic(ctx, kafkaWriter.Addr.String(), kafkaWriter.Topic)
		if err != nil {
			log.Warnf("[server] failed to create Kafka topic: %v", err)
		}
		opts.Publisher = events.NewPublisher(kafkaWriter, cfg.ServiceName)
	} else {
		log.Warnf("[server] kafka was not configured, logs will not be sent to Kafka")
	}

	if cfg.RedisAddr != "" {
		ttl, err := time.ParseDuration(cfg.CacheTTL)
		if err != nil {
			log.Fatalf("[server] invalid cacheTTL %q: %v", cfg.CacheTTL, err)
		}
		rc, err := cache.Connect(ctx, cfg.RedisAddr, os.Getenv("REDIS_PASSWORD"), ttl)
		if err != nil {
			log.Warnf("[server] results will not be cached: %v", err)
		} else {
			defer rc.Close()
			// results cached by a previous dictionary are stale
			if err := rc.Invalidate(ctx); err != nil {
				log.Warnf("[server] failed to invalidate cache: %v", err)
			}
			opts.Cache = rc
		}
	}

	api, err := api.New(cfg.ServiceName, c, opts)
	if err != nil {
		log.Fatalf("[server] failed to create API: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Infof("[server] starting on port %v", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] failed to start: %v", err)
			return
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	shutdownCtx, shutdownRelease := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownRelease()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("[server] HTTP server shutdown error: %v", err)
	} else {
		log.Info("[server] HTTP server shut down gracefully")
	}
}
