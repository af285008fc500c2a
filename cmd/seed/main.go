// Command seed imports the JSON question banks into PostgreSQL.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/config"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/infra/postgres"
	pgrepo "github.com/aliskhannn/citizenship-quiz-bot/internal/infra/postgres/repository"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/logger"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/repository"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("seed failed", zap.Error(err))
		stop()
		_ = lg.Sync()
		os.Exit(1)
	}
}

// run replaces every PostgreSQL question bank with the JSON files in one transaction.
func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	dsn, err := cfg.DB.DSN()
	if err != nil {
		return fmt.Errorf("database is not configured: %w", err)
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
		MaxConns:        int32(cfg.DB.MaxConnections),
		MaxConnLifetime: cfg.DB.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	source, err := repository.NewQuestionRepository(map[entities.Country]string{
		entities.CountryCanada: cfg.Questions.CanadaPath,
		entities.CountryUK:     cfg.Questions.UKPath,
	})
	if err != nil {
		return fmt.Errorf("load question files: %w", err)
	}

	repo := pgrepo.NewQuestionRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}

	banks := source.Banks()
	return postgres.NewTransactor(pool).WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		counts, err := repo.ImportBanksWithTx(ctx, tx, banks)
		if err != nil {
			return err
		}
		for country, n := range counts {
			lg.Info("questions imported",
				zap.String("country", string(country)),
				zap.Int("chapters", len(banks[country])),
				zap.Int("questions", n),
			)
		}
		return nil
	})
}
