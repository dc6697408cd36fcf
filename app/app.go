package app

import (
	"context"
	"fmt"

	"github.com/upb/llm-cost-guard/config"
	"github.com/upb/llm-cost-guard/models"
	"github.com/upb/llm-cost-guard/repositories"
	"github.com/upb/llm-cost-guard/repositories/postgres"
	"github.com/upb/llm-cost-guard/services/anomaly"
	"github.com/upb/llm-cost-guard/services/baseline"
	"github.com/upb/llm-cost-guard/services/evaluation"
	"github.com/upb/llm-cost-guard/services/guardrail"
	"github.com/upb/llm-cost-guard/services/ledger"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Storage
	Store repositories.Ledger

	// Policies loaded from the policy file, in declaration order
	Policies []models.Policy

	// Services
	Ledger     *ledger.Service
	Baseline   *baseline.Service
	Detector   *anomaly.Detector
	Engine     *guardrail.Engine
	Evaluation *evaluation.Service
}

// NewDependencies creates and wires up all application dependencies
// against PostgreSQL, initializing the ledger schema on first run.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}

	policies, err := config.LoadPolicies(cfg.PolicyFile)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to load guardrail policies: %w", err)
	}

	store := postgres.NewUsageRepository(db, logger)

	deps := NewDependenciesWithStore(cfg, store, policies, logger)
	deps.DB = db

	logger.Info("all dependencies initialized",
		zap.String("database", cfg.Database.LogString()),
		zap.Int("policies", len(policies)))

	return deps, nil
}

// NewDependenciesWithStore wires the service graph on top of an
// existing ledger store. Used directly by the SDK and the demo seeder,
// which run against the in-memory ledger.
func NewDependenciesWithStore(cfg *config.Config, store repositories.Ledger, policies []models.Policy, logger *zap.Logger) *Dependencies {
	ledgerSvc := ledger.NewService(store, logger)
	baselineSvc := baseline.NewService(store, cfg.Baseline, logger)
	detector := anomaly.NewDetector(cfg.Thresholds, logger)
	engine := guardrail.NewEngine(store, policies, logger)

	return &Dependencies{
		Config:     cfg,
		Logger:     logger,
		Store:      store,
		Policies:   policies,
		Ledger:     ledgerSvc,
		Baseline:   baselineSvc,
		Detector:   detector,
		Engine:     engine,
		Evaluation: evaluation.NewService(ledgerSvc, baselineSvc, detector, engine, logger),
	}
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
