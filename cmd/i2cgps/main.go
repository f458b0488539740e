package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"i2cgps/internal/config"
	"i2cgps/internal/logging"
	"i2cgps/internal/web"
)

func main() {
	var (
		configPath string
		logLevel   string
		once       bool
	)
	flag.StringVar(&configPath, "config", "./i2cgps.yaml", "Path to YAML config")
	flag.StringVar(&logLevel, "loglevel", "", "Override log.level (trace, debug, info, warn, error)")
	flag.BoolVar(&once, "once", false, "Read a single fix, print it as JSON and exit")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logs := web.NewLogBuffer(500)
	log, err := logging.New(cfg.Log.Level, io.MultiWriter(os.Stderr, logs))
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newApp(ctx, cfg, log, logs)
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer rt.Close()

	if once {
		r, err := readOnce(ctx, rt.driver, 5*time.Second)
		if err != nil {
			log.WithError(err).Fatal("read failed")
		}
		_ = json.NewEncoder(os.Stdout).Encode(r)
		return
	}

	if err := rt.Run(ctx); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("stopped")
		rt.Close()
		os.Exit(1)
	}
	log.Info("i2cgps stopping")
}
