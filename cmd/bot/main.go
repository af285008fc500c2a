package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/aliskhannn/citizenship-quiz-bot/internal/config"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/delivery/api"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/delivery/telegram"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/domain/entities"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/infra/postgres"
	pgrepo "github.com/aliskhannn/citizenship-quiz-bot/internal/infra/postgres/repository"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/logger"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/repository"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/service"
	"github.com/aliskhannn/citizenship-quiz-bot/internal/storage"
)

const shutdownTimeout = 5 * time.Second

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.ValidateHosts(); err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bank, closeBank, err := openQuestionBank(ctx, cfg)
	if err != nil {
		lg.Fatal("failed to open question bank", zap.Error(err))
	}
	defer closeBank()

	policies := countryPolicies(cfg)
	quizStorage := storage.NewQuizStorage()
	engine := service.NewSessionEngine(cfg.Quiz.PassMark)
	selector := service.NewQuestionSelector(bank, policies)
	quizService := service.NewQuizService(bank, selector, engine, quizStorage, lg)
	countdown := service.NewCountdown(quizService, cfg.Quiz.Retention, lg)

	var wg sync.WaitGroup

	if cfg.Telegram.Enabled {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.APIToken)
		if err != nil {
			lg.Fatal("failed to create telegram bot", zap.Error(err))
		}
		bot.Debug = cfg.Telegram.Debug

		setCommands(bot, lg)
		lg.Info("authorized on telegram", zap.String("account", bot.Self.UserName))

		handler := telegram.NewHandler(bot, lg, quizService, quizStorage, telegram.Settings{
			PassMark:      engine.PassMark(),
			Policies:      policies,
			RatePerSecond: cfg.Telegram.RatePerSecond,
			RateBurst:     cfg.Telegram.RateBurst,
		})
		countdown.SetNotifier(handler)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := handler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				lg.Error("telegram handler stopped with error", zap.Error(err))
				stop()
			}
		}()
	}

	if cfg.HTTP.Enabled {
		if cfg.Env == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		router := api.NewRouter(api.NewHandler(quizService, lg), lg)
		server := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			lg.Info("http server listening", zap.String("addr", cfg.HTTP.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				lg.Error("http server failed", zap.Error(err))
				stop()
			}
		}()

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				lg.Error("http server forced to shutdown", zap.Error(err))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		countdown.Start(ctx)
	}()

	<-ctx.Done()
	lg.Info("shutdown signal received")
	wg.Wait()
}

// openQuestionBank opens the configured question source.
func openQuestionBank(ctx context.Context, cfg *config.Config) (service.QuestionBank, func(), error) {
	switch cfg.Questions.Source {
	case config.SourcePostgres:
		dsn, err := cfg.DB.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        int32(cfg.DB.MaxConnections),
			MaxConnLifetime: cfg.DB.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, err
		}
		repo := pgrepo.NewQuestionRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	default:
		repo, err := repository.NewQuestionRepository(map[entities.Country]string{
			entities.CountryCanada: cfg.Questions.CanadaPath,
			entities.CountryUK:     cfg.Questions.UKPath,
		})
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	}
}

func countryPolicies(cfg *config.Config) map[entities.Country]service.CountryPolicy {
	toPolicy := func(p config.CountryPolicy) service.CountryPolicy {
		return service.CountryPolicy{
			QuizSize:      p.QuizSize,
			MockSize:      p.MockSize,
			QuizTimeLimit: p.QuizTimeLimit,
			MockTimeLimit: p.MockTimeLimit,
		}
	}
	return map[entities.Country]service.CountryPolicy{
		entities.CountryCanada: toPolicy(cfg.Quiz.Canada),
		entities.CountryUK:     toPolicy(cfg.Quiz.UK),
	}
}

func setCommands(bot *tgbotapi.BotAPI, lg *zap.Logger) {
	commands := []tgbotapi.BotCommand{
		{
			Command:     "start",
			Description: "Start the bot",
		},
		{
			Command:     "canada",
			Description: "Canadian citizenship test",
		},
		{
			Command:     "uk",
			Description: "Life in the UK test",
		},
		{
			Command:     "practice",
			Description: "Practise one chapter",
		},
		{
			Command:     "score",
			Description: "Progress of the current quiz",
		},
		{
			Command:     "stop",
			Description: "Finish the current quiz",
		},
		{
			Command:     "help",
			Description: "Help",
		},
	}

	if _, err := bot.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		lg.Warn("failed to set bot commands", zap.Error(err))
	}
}
