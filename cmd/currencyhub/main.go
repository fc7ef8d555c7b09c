package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Armin-kho/currencyhub/internal/app"
	"github.com/Armin-kho/currencyhub/internal/config"
)

func main() {
	cfgPath := flag.String("config", config.DefaultConfigPath(), "path to config.json")
	backup := flag.String("backup", "", "write a snapshot of the sqlite store to this path and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logrus.Fatalf("config error: %v", err)
	}

	log, err := app.NewLogger(cfg)
	if err != nil {
		logrus.Fatalf("logger error: %v", err)
	}

	if *backup != "" {
		if err := app.Backup(context.Background(), cfg, *backup); err != nil {
			log.Fatalf("backup error: %v", err)
		}
		log.WithField("path", *backup).Info("Backup written")
		return
	}

	a, err := app.New(cfg, log)
	if err != nil {
		log.Fatalf("init error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = a.Run(ctx)
	a.Close()
	if err != nil {
		log.Fatalf("run error: %v", err)
	}
}
