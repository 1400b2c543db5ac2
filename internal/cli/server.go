package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/config"
	"assessment-service/internal/domain"
	"assessment-service/internal/infra/memory"
	pg "assessment-service/internal/infra/postgres"
	rediscache "assessment-service/internal/infra/redis"
	transport "assessment-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	questionTTL := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)

	var (
		questionRepo   app.QuestionRepository
		topicRepo      app.TopicRepository
		assignmentRepo app.AssignmentRepository
		attemptRepo    app.AttemptRepository
		examRepo       app.ExamRepository
	)
	if cfg.Postgres.URL != "" {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()

		questionRepo = pg.NewQuestionRepository(db)
		topicRepo = pg.NewTopicRepository(db)
		assignmentRepo = pg.NewAssignmentRepository(db)
		attemptRepo = pg.NewAttemptRepository(db)
		examRepo = pg.NewExamRepository(pool)
	} else {
		memQuestions := memory.NewQuestionRepository()
		for _, q := range sampleQuestions() {
			q := q
			_ = memQuestions.Save(ctx, &q)
		}
		questionRepo = memQuestions
		topicRepo = memory.NewTopicRepository()
		assignmentRepo = memory.NewAssignmentRepository()
		attemptRepo = memory.NewAttemptRepository()
		examRepo = memory.NewExamRepository(sampleExam())
	}

	if redisClient != nil {
		questionRepo = rediscache.NewQuestionCache(redisClient, questionRepo, questionTTL)
	}

	bank := app.NewQuestionBank(questionRepo)
	tagger := app.NewTopicTagger(topicRepo)
	assignments := app.NewAssignmentService(assignmentRepo)
	attempts := app.NewAttemptEngine(attemptRepo, examRepo, bank)
	stats := app.NewStatsAggregator(attemptRepo, assignmentRepo, questionRepo, examRepo, topicRepo)

	hub := transport.NewEventHub()
	api := transport.NewAPI(bank, tagger, assignments, attempts, stats, hub)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleExam and sampleQuestions seed the in-memory repositories when no
// Postgres is configured, so a bare `start` serves something useful.
func sampleExam() domain.Exam {
	return domain.Exam{
		ID:                     "exam-onboarding",
		Title:                  "Onboarding basics",
		Description:            "Short check after the onboarding course",
		DurationMinutes:        30,
		PassingScorePercentage: 60,
		IsActive:               true,
	}
}

func sampleQuestions() []domain.Question {
	base := time.Now()
	return []domain.Question{
		{
			ID:            "q1",
			ExamID:        "exam-onboarding",
			Text:          "Which door badge opens the lab?",
			Type:          domain.QuestionSingleChoice,
			Options:       []string{"Blue", "Green", "Red"},
			CorrectOption: 1,
			Points:        5,
			Active:        true,
			CreatedAt:     base,
		},
		{
			ID:            "q2",
			ExamID:        "exam-onboarding",
			Text:          "Incident reports are filed within 24 hours.",
			Type:          domain.QuestionTrueFalse,
			Options:       []string{"True", "False"},
			CorrectOption: 0,
			Points:        3,
			Active:        true,
			CreatedAt:     base.Add(time.Second),
		},
	}
}
