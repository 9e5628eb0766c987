package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"energypassport/internal/api"
	"energypassport/internal/artifacts"
	"energypassport/internal/balance"
	"energypassport/internal/classifier"
	"energypassport/internal/config"
	"energypassport/internal/importer"
	"energypassport/internal/merge"
	"energypassport/internal/metrics"
	"energypassport/internal/ocr"
	"energypassport/internal/readiness"
	"energypassport/internal/semantic"
	"energypassport/internal/store"
)

const dbFile = "energypassport.db"

// Server HTTP server
type Server struct {
	router *gin.Engine
	store  *store.Store
	dirs   config.DataDirs
}

// NewServer wires the pipeline from cfg with data next to the executable
func NewServer(cfg *config.AppConfig) (*Server, error) {
	exeDir, err := config.GetExeDir()
	if err != nil {
		exeDir = "."
	}
	return newServerAt(cfg, exeDir)
}

func newServerAt(cfg *config.AppConfig, baseDir string) (*Server, error) {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	app, err := NewApp(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router: gin.Default(),
		store:  app.Store,
		dirs:   app.Dirs,
	}
	s.setupRoutes(api.NewHandler(app.Store, app.Coordinator, app.Validator, app.Dirs.Inbox))
	return s, nil
}

// App wired pipeline components
type App struct {
	Store       *store.Store
	Coordinator *importer.Coordinator
	Validator   *readiness.Validator
	Dirs        config.DataDirs
}

// NewApp builds storage, classifier, extractor and analyzer from cfg with
// data directories under baseDir
func NewApp(cfg *config.AppConfig, baseDir string) (*App, error) {
	metrics.Init()

	dirs, err := config.EnsureDataDirAt(baseDir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data directory: %w", err)
	}

	sqliteStore, err := store.New(filepath.Join(dirs.Root, dbFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	artifactStore, err := newArtifactStore(cfg, dirs)
	if err != nil {
		sqliteStore.Close()
		return nil, err
	}

	matrix, err := classifier.LoadMatrix(cfg.MatrixPath)
	if err != nil {
		sqliteStore.Close()
		return nil, fmt.Errorf("failed to load requirements matrix: %w", err)
	}
	cls := classifier.New(matrix)

	return &App{
		Store: sqliteStore,
		Coordinator: importer.NewCoordinator(sqliteStore, artifactStore, cls,
			balance.NewExtractor(newOCRClient(cfg)), newAnalyzer(cfg)),
		Validator: readiness.NewValidator(sqliteStore, artifactStore, cls, nil),
		Dirs:      dirs,
	}, nil
}

func newArtifactStore(cfg *config.AppConfig, dirs config.DataDirs) (artifacts.Store, error) {
	if cfg.Storage.Backend != config.BackendMinIO {
		return artifacts.NewFileStore(dirs.Aggregated)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	m := cfg.Storage.MinIO
	st, err := artifacts.NewMinIOStore(ctx, artifacts.MinIOOptions{
		Endpoint:  m.Endpoint,
		AccessKey: m.AccessKey,
		SecretKey: m.SecretKey,
		Bucket:    m.Bucket,
		Prefix:    m.Prefix,
		UseSSL:    m.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact storage: %w", err)
	}
	return st, nil
}

// newOCRClient nil when no endpoint is configured
func newOCRClient(cfg *config.AppConfig) balance.OCRClient {
	client, err := ocr.NewHTTPClient(ocr.Options{
		Endpoint: cfg.OCR.Endpoint,
		APIKey:   cfg.OCR.APIKey,
		Timeout:  time.Duration(cfg.OCR.TimeoutSeconds) * time.Second,
		Retries:  cfg.OCR.Retries,
	})
	if err != nil {
		if !errors.Is(err, ocr.ErrNotConfigured) {
			log.Printf("[server] OCR disabled: %v", err)
		}
		return nil
	}
	return client
}

func newAnalyzer(cfg *config.AppConfig) *semantic.Analyzer {
	settings := semantic.Settings{
		AIEnabled:        cfg.AI.Enabled,
		Mode:             semantic.ParseMode(cfg.AI.Mode),
		MinConfForAICall: cfg.AI.MinConfForAICall,
		Temperature:      cfg.AI.Temperature,
		MaxTokens:        cfg.AI.MaxTokens,
		Thresholds: merge.Thresholds{
			FillMin:     cfg.AI.MinConfForFill,
			OverrideMin: cfg.AI.MinConfForOverride,
		},
	}

	var client semantic.LLMClient
	if cfg.AI.Enabled {
		c, err := semantic.NewOpenAIClient(semantic.OpenAIConfig{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
			Timeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			log.Printf("[server] LLM mapping unavailable: %v", err)
		} else {
			client = c
		}
	}
	return semantic.NewAnalyzer(client, settings)
}

func (s *Server) setupRoutes(h *api.Handler) {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := s.router.Group("/api")
	{
		h.RegisterRoutes(apiGroup)
	}
}

// Handler the router, for tests and custom listeners
func (s *Server) Handler() *gin.Engine {
	return s.router
}

// Run starts listening on addr
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close releases the database
func (s *Server) Close() error {
	return s.store.Close()
}
