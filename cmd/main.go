package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/learnweave/backend/internal/agents"
	"github.com/learnweave/backend/internal/clients/gcs"
	"github.com/learnweave/backend/internal/clients/genai"
	"github.com/learnweave/backend/internal/clients/redis"
	"github.com/learnweave/backend/internal/clients/vectorstore"
	"github.com/learnweave/backend/internal/data/db"
	"github.com/learnweave/backend/internal/data/repos"
	"github.com/learnweave/backend/internal/handlers"
	"github.com/learnweave/backend/internal/observability"
	"github.com/learnweave/backend/internal/platform/env"
	"github.com/learnweave/backend/internal/platform/logger"
	"github.com/learnweave/backend/internal/server"
	"github.com/learnweave/backend/internal/services"
	"github.com/learnweave/backend/internal/sse"
)

const appName = "LearnWeave"

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	courseRepo := repos.NewCourseRepo(thePG, log)
	chapterRepo := repos.NewChapterRepo(thePG, log)
	questionRepo := repos.NewQuestionRepo(thePG, log)
	documentRepo := repos.NewDocumentRepo(thePG, log)
	usageLogRepo := repos.NewUsageLogRepo(thePG, log)

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewHub(log)

	// Clients
	log.Info("Setting up clients from main...")
	genaiClient, err := genai.NewClient(log)
	if err != nil {
		log.Error("Could not init GenAI client", "error", err)
		os.Exit(1)
	}
	var vectorStore vectorstore.Store
	if apiKey := os.Getenv("PINECONE_API_KEY"); apiKey != "" {
		pc, err := vectorstore.New(log, vectorstore.Config{APIKey: apiKey})
		if err != nil {
			log.Warn("Could not init Pinecone client", "error", err)
		} else if vectorStore, err = vectorstore.NewStore(log, pc); err != nil {
			log.Warn("Could not init vector store", "error", err)
			vectorStore = nil
		}
	} else {
		log.Warn("PINECONE_API_KEY not set; document retrieval disabled")
	}
	bucketService, err := gcs.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService", "error", err)
		bucketService = nil
	}
	progressBus, err := redis.NewProgressBus(log)
	if err != nil {
		log.Warn("Could not init Redis progress bus; SSE stays in-process", "error", err)
		progressBus = nil
	}

	// Agents
	log.Info("Setting up agents from main...")
	agentSet := services.AgentSet{
		Info:      mustStructuredAgent(log, genaiClient, "info"),
		Planner:   mustStructuredAgent(log, genaiClient, "planner"),
		Tester:    mustStructuredAgent(log, genaiClient, "tester"),
		Grader:    mustStructuredAgent(log, genaiClient, "grader"),
		Explainer: buildExplainer(log, genaiClient),
	}

	// Services
	log.Info("Setting up Services from main...")
	stateStore := services.NewCourseStateStore(log)
	queryBuilder := services.NewQueryBuilder()
	var contentIndex services.ContentIndex
	if vectorStore != nil {
		contentIndex = services.NewContentIndex(log, genaiClient, vectorStore)
	}
	coverRenderer, err := services.NewCoverRenderer(log)
	if err != nil {
		log.Warn("Could not init CoverRenderer; falling back to default covers", "error", err)
		coverRenderer = nil
	}
	imageGenerator := services.NewImageGenerator(log, genaiClient, bucketService, coverRenderer)
	notifier := services.NewCourseNotifier(log, sseHub, progressBus)
	courseService := services.NewCourseService(log, courseRepo, chapterRepo, questionRepo)
	courseCreation := services.NewCourseCreationService(log, services.CourseCreationDeps{
		Runtime:    genaiClient,
		Agents:     agentSet,
		AppName:    appName,
		StateStore: stateStore,
		Queries:    queryBuilder,
		Index:      contentIndex,
		Images:     imageGenerator,
		Notifier:   notifier,
		Courses:    courseRepo,
		Chapters:   chapterRepo,
		Questions:  questionRepo,
		Documents:  documentRepo,
		Usage:      usageLogRepo,
	})

	if progressBus != nil {
		if err := progressBus.StartForwarder(context.Background(), sseHub.Broadcast); err != nil {
			log.Warn("Could not start Redis forwarder", "error", err)
		}
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	courseHandler := handlers.NewCourseHandler(log, courseCreation, courseService)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		CourseHandler: courseHandler,
		SSEHandler:    sseHandler,
	})

	// Tracing
	shutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "learnweave",
		Environment: env.Get("APP_ENV", "development", log),
		Version:     env.Get("APP_VERSION", "dev", log),
	})
	if shutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	port := env.Get("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}

func mustStructuredAgent(log *logger.Logger, runtime agents.Runtime, name string) *agents.StructuredAgent {
	instructions, err := agents.Instructions(name)
	if err != nil {
		log.Error("Could not load agent instructions", "agent", name, "error", err)
		os.Exit(1)
	}
	return agents.NewStructuredAgent(log, runtime, appName, name, instructions)
}

// buildExplainer wraps the explainer in the ESLint feedback loop so chapter
// components are re-prompted until they lint clean.
func buildExplainer(log *logger.Logger, runtime agents.Runtime) services.Agent {
	instructions, err := agents.Instructions("explainer")
	if err != nil {
		log.Error("Could not load agent instructions", "agent", "explainer", "error", err)
		os.Exit(1)
	}
	text := agents.NewTextAgent(log, runtime, appName, "explainer", instructions)
	return agents.NewValidatedAgent(log, text, services.NewESLintValidator(log))
}
