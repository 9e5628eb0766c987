package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"energypassport/internal/config"
	"energypassport/internal/importer"
	"energypassport/internal/server"
)

var (
	port       = flag.Int("port", 0, "listen port (config.toml wins when it sets one)")
	devMode    = flag.Bool("dev", false, "development mode")
	dataDir    = flag.String("dataDir", "", "data directory (overrides config)")
	ingestPath = flag.String("ingest", "", "ingest one file and exit")
	enterprise = flag.Int64("enterprise", 0, "enterprise id for -ingest (0 creates one)")
	hint       = flag.String("hint", "", "resource hint for -ingest")
	readyCheck = flag.Bool("readiness", false, "print the readiness result of -enterprise and exit")
)

func main() {
	flag.Parse()

	cfg, info, err := config.LoadConfigWithInfo()
	if err != nil {
		log.Printf("failed to load config, using defaults: %v", err)
		cfg = config.DefaultConfig()
		info = config.LoadConfigInfo{}
	}

	if *port > 0 && !info.PortSpecified {
		cfg.Server.Port = *port
	}
	if *devMode {
		cfg.Server.DevMode = true
	}
	if *dataDir != "" {
		cfg.Data.DataDir = *dataDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *ingestPath != "" || *readyCheck {
		if err := runOnce(ctx, cfg); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer srv.Close()

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		log.Printf("[main] listening on %s", addr)
		if err := srv.Run(addr); err != nil {
			log.Fatalf("server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[main] shutting down")
}

// runOnce ingests a file and/or prints readiness without starting the server
func runOnce(ctx context.Context, cfg *config.AppConfig) error {
	exeDir, err := config.GetExeDir()
	if err != nil {
		exeDir = "."
	}
	app, err := server.NewApp(cfg, exeDir)
	if err != nil {
		return err
	}
	defer app.Store.Close()

	entID := *enterprise
	if entID == 0 {
		if entID, err = app.Store.CreateEnterprise(ctx, "cli"); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if *ingestPath != "" {
		for evt := range app.Coordinator.Ingest(ctx, importer.IngestOptions{
			EnterpriseID: entID,
			FilePath:     *ingestPath,
			UserHint:     *hint,
		}) {
			switch evt.Type {
			case "done":
				if err := enc.Encode(evt.Data); err != nil {
					return err
				}
			case "error":
				return fmt.Errorf("ingest failed: %s", evt.Message)
			default:
				log.Printf("[%s] %s", evt.Type, evt.Message)
			}
		}
	}

	if *readyCheck {
		return enc.Encode(app.Validator.Validate(ctx, entID))
	}
	return nil
}
