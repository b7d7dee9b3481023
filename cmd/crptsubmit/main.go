package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/3xpluto/go-crpt-client/internal/admission"
	"github.com/3xpluto/go-crpt-client/internal/auth"
	"github.com/3xpluto/go-crpt-client/internal/config"
	"github.com/3xpluto/go-crpt-client/internal/crpt"
	"github.com/3xpluto/go-crpt-client/internal/document"
	"github.com/3xpluto/go-crpt-client/internal/logging"
)

type submission struct {
	Document  document.Document `json:"document"`
	Signature string            `json:"signature"`
}

func main() {
	var configPath, docsPath string
	var validateOnly bool
	flag.StringVar(&configPath, "config", "./config/config.example.yaml", "path to yaml config")
	flag.StringVar(&docsPath, "documents", "", "path to a json file with documents to submit")
	flag.BoolVar(&validateOnly, "validate-config", false, "validate config and exit")
	flag.Parse()

	log := logging.New()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if validateOnly {
		log.Info("config ok")
		return
	}
	if docsPath == "" {
		log.Error("missing -documents")
		os.Exit(1)
	}

	subs, err := readSubmissions(docsPath)
	if err != nil {
		log.Error("failed to read documents file", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if len(subs) == 0 {
		log.Info("nothing to submit")
		return
	}

	window, err := cfg.RateLimit.ParseWindow()
	if err != nil {
		log.Error("invalid rate_limit.window", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// ---- Admission backend
	var gate admission.Controller
	switch strings.ToLower(cfg.RateLimit.Backend) {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.Redis.Addr,
			Password: cfg.RateLimit.Redis.Password,
			DB:       cfg.RateLimit.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		pingErr := rdb.Ping(ctx).Err()
		cancel()

		if pingErr != nil {
			log.Warn("redis unreachable; falling back to in-process controller", slog.String("error", pingErr.Error()))
			gate, err = admission.NewWindow(cfg.RateLimit.Limit, window)
		} else {
			gate, err = admission.NewRedis(rdb, "crpt:admission", cfg.RateLimit.Limit, window)
		}

	case "memory":
		gate, err = admission.NewWindow(cfg.RateLimit.Limit, window)

	default:
		log.Error("unknown rate_limit.backend", slog.String("backend", cfg.RateLimit.Backend))
		os.Exit(1)
	}
	if err != nil {
		log.Error("failed to create admission controller", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer gate.Close()

	tokens := auth.NewTokenSource(cfg.Auth.Token)
	if tokens.Expired(time.Now()) {
		log.Error("auth token is expired")
		os.Exit(1)
	}
	if exp, ok := tokens.ExpiresAt(); ok && time.Until(exp) < time.Hour {
		log.Warn("auth token expires soon", slog.Time("expires_at", exp))
	}

	client := crpt.New(crpt.Options{
		URL:     cfg.API.URL,
		Timeout: cfg.API.Timeout(),
		Tokens:  tokens,
	}, gate, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("submitting documents",
		slog.Int("count", len(subs)),
		slog.Int("limit", cfg.RateLimit.Limit),
		slog.String("window", window.String()),
	)

	var wg sync.WaitGroup
	var failed atomic.Int64
	for i := range subs {
		wg.Add(1)
		go func(s submission) {
			defer wg.Done()
			if err := client.Submit(ctx, &s.Document, s.Signature); err != nil {
				failed.Add(1)
			}
		}(subs[i])
	}
	wg.Wait()

	if n := failed.Load(); n > 0 {
		log.Error("some submissions failed", slog.Int64("failed", n), slog.Int("total", len(subs)))
		os.Exit(1)
	}
	log.Info("all documents submitted", slog.Int("count", len(subs)))
}

func readSubmissions(path string) ([]submission, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var subs []submission
	if err := json.Unmarshal(b, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}
