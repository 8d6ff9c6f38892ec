package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/purplefish/interviewchat/config"
	"github.com/purplefish/interviewchat/internal/api/handlers"
	"github.com/purplefish/interviewchat/internal/api/middleware"
	"github.com/purplefish/interviewchat/internal/api/routes"
	"github.com/purplefish/interviewchat/internal/cache"
	"github.com/purplefish/interviewchat/internal/interview"
	"github.com/purplefish/interviewchat/internal/lock"
	"github.com/purplefish/interviewchat/internal/logger"
	"github.com/purplefish/interviewchat/internal/providers/llm"
	"github.com/purplefish/interviewchat/internal/providers/stt"
	mongorepo "github.com/purplefish/interviewchat/internal/repositories/mongo"
	pgrepo "github.com/purplefish/interviewchat/internal/repositories/postgres"
	"github.com/purplefish/interviewchat/internal/services"
	"github.com/purplefish/interviewchat/internal/storage"
	"github.com/purplefish/interviewchat/internal/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}

	log := logger.New(cfg.LogLevel)
	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := interview.Default.Validate(); err != nil {
		return err
	}

	// PostgreSQL (or SQLite)
	db, err := config.OpenDatabase(cfg.DB)
	if err != nil {
		return err
	}
	if err := pgrepo.AutoMigrate(db); err != nil {
		return err
	}
	log.WithField("driver", cfg.DB.Driver).Info("database connected")

	convos := pgrepo.NewConversationRepo(db)
	messages := pgrepo.NewMessageRepo(db)

	// Redis
	var (
		rdb     *redis.Client
		locker  lock.Locker = lock.NewMemory()
		listC   cache.Cache = cache.Noop{}
		events  services.StatusPublisher
		exports services.ExportQueue
	)
	events, exports = services.NoopEvents{}, services.NoopEvents{}
	if cfg.Redis.Enabled() {
		rdb, err = config.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		locker = lock.NewRedis(rdb, log)
		listC = cache.NewRedisCache(rdb)
		re := services.NewRedisEvents(rdb)
		events = re
		if cfg.Transcript.Enabled() {
			exports = re
		}
		log.Info("redis connected")
	}

	// MongoDB turn audit
	var turns mongorepo.TurnRepository
	if cfg.Mongo.Enabled() {
		mc, err := config.OpenMongo(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer func() { _ = mc.Disconnect(context.Background()) }()
		mdb := mc.Database(cfg.Mongo.Database)
		if err := config.EnsureMongoIndexes(ctx, mdb); err != nil {
			return err
		}
		turns = mongorepo.NewTurnRepo(mdb, config.TurnsCollection, cfg.Mongo.AuditTTL)
		log.Info("mongodb connected")
	}
	audit := services.NewAuditService(turns, log)

	// Language model
	var provider llm.Provider
	switch cfg.LLM.Provider {
	case "vertex":
		provider, err = llm.NewVertexGemini(ctx, llm.VertexOptions{
			Project:         cfg.LLM.VertexProject,
			Location:        cfg.LLM.VertexLocation,
			Model:           cfg.LLM.ModelName(),
			Temperature:     cfg.LLM.Temperature,
			MaxTokens:       int32(cfg.LLM.MaxTokens),
			CredentialsFile: cfg.LLM.CredentialsFile,
		})
		if err != nil {
			return err
		}
	default:
		if cfg.LLM.OpenAIKey == "" {
			log.Warn("OPENAI_API_KEY is not set, chat answers will fail")
		}
		provider = llm.NewOpenAI(llm.OpenAIOptions{
			APIKey:      cfg.LLM.OpenAIKey,
			BaseURL:     cfg.LLM.OpenAIBaseURL,
			Model:       cfg.LLM.ModelName(),
			Temperature: cfg.LLM.Temperature,
			MaxTokens:   cfg.LLM.MaxTokens,
		})
	}
	provider = llm.NewRetrying(provider, cfg.LLM.MaxRetries, log)
	defer provider.Close()

	chat := services.NewChatService(services.ChatDeps{
		Conversations: convos,
		Messages:      messages,
		LLM:           provider,
		Script:        interview.Default,
		Locker:        locker,
		Cache:         listC,
		Audit:         audit,
		Events:        events,
		Exports:       exports,
		Log:           log,
		Timeout:       cfg.LLM.Timeout,
	})
	convs := services.NewConversationService(services.ConversationDeps{
		Conversations: convos,
		Messages:      messages,
		Locker:        locker,
		Cache:         listC,
		Audit:         audit,
		Events:        events,
		Exports:       exports,
		Log:           log,
	})

	// Voice answers
	var voice services.VoiceService
	if cfg.STT.Enabled {
		sp, err := stt.NewGoogleSpeech(ctx, cfg.LLM.CredentialsFile, cfg.STT.Language)
		if err != nil {
			return err
		}
		defer sp.Close()
		voice = services.NewVoiceService(sp, chat)
	}

	// Transcript export workers
	if cfg.Transcript.Enabled() {
		up, err := storage.NewGCSUploader(ctx, cfg.Transcript.Bucket, cfg.LLM.CredentialsFile)
		if err != nil {
			return err
		}
		defer up.Close()
		pool := &workers.TranscriptWorkerPool{
			Redis:       rdb,
			Transcripts: services.NewTranscriptService(convos, messages, up),
			NumWorkers:  cfg.Transcript.Workers,
			Logger:      log,
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg.CORSOrigins()))

	routes.RegisterRoutes(r, routes.Deps{
		Chat:         handlers.NewChatHandler(chat, voice),
		Conversation: handlers.NewConversationHandler(convs),
		WS:           handlers.NewWSHandler(chat, convs, rdb, cfg.CORSOrigins(), log),
		Auth:         cfg.Auth,
		Limiter:      cfg.Limiter,
		VoiceRoutes:  voice != nil,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), cfg.LLM.Timeout+5*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	log.WithField("addr", srv.Addr).Info("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
