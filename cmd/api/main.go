package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/Benrobo/nexusai-sub000/internal/agents"
	"github.com/Benrobo/nexusai-sub000/internal/ai"
	"github.com/Benrobo/nexusai-sub000/internal/audit"
	"github.com/Benrobo/nexusai-sub000/internal/auth"
	"github.com/Benrobo/nexusai-sub000/internal/billing"
	"github.com/Benrobo/nexusai-sub000/internal/calls"
	"github.com/Benrobo/nexusai-sub000/internal/config"
	"github.com/Benrobo/nexusai-sub000/internal/httpapi"
	"github.com/Benrobo/nexusai-sub000/internal/jobs"
	"github.com/Benrobo/nexusai-sub000/internal/kb"
	"github.com/Benrobo/nexusai-sub000/internal/notify"
	"github.com/Benrobo/nexusai-sub000/internal/numbers"
	"github.com/Benrobo/nexusai-sub000/internal/phrase"
	"github.com/Benrobo/nexusai-sub000/internal/telephony"
	"github.com/Benrobo/nexusai-sub000/internal/users"
	"github.com/Benrobo/nexusai-sub000/pkg/logger"
	"github.com/Benrobo/nexusai-sub000/pkg/utils"
)

// retrieverHook defers the kb service behind the AI retriever interface.
// The AI service needs a retriever at construction time and the kb service
// needs the AI service as its embedder, so the hook breaks the tie.
type retrieverHook struct {
	kb *kb.Service
}

func (r *retrieverHook) Retrieve(ctx context.Context, kbIDs []string, query string) (string, error) {
	return r.kb.Retrieve(ctx, kbIDs, query)
}

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	if err := os.MkdirAll(cfg.App.AudioDir, 0o755); err != nil {
		log.Error("audio dir init failed", "dir", cfg.App.AudioDir, "err", err)
		os.Exit(1)
	}

	// Repositories
	usersRepo := users.NewSQLRepository(db)
	agentsRepo := agents.NewSQLRepository(db)
	numbersRepo := numbers.NewSQLRepository(db)
	kbRepo := kb.NewSQLRepository(db)
	callsRepo := calls.NewSQLRepository(db)
	billingRepo := billing.NewSQLRepository(db)
	phraseRepo := phrase.NewSQLRepository(db)

	// AI first: the other services hang off its capabilities. The kb
	// service is bound to it afterwards through the retriever hook.
	retriever := &retrieverHook{}
	aiSvc, err := ai.NewService(rootCtx, ai.Config{
		APIKey:     cfg.Gemini.APIKey,
		ChatModel:  cfg.Gemini.ChatModel,
		EmbedModel: cfg.Gemini.EmbedModel,
		TTSModel:   cfg.Gemini.TTSModel,
	}, retriever)
	if err != nil {
		log.Error("gemini init failed", "err", err)
		os.Exit(1)
	}

	kbSvc := kb.NewService(kbRepo, agentsRepo, aiSvc)
	retriever.kb = kbSvc

	usersSvc := users.NewService(usersRepo, rdb)
	agentsSvc := agents.NewService(agentsRepo)

	twilio := telephony.NewTwilioClient(cfg.Twilio, cfg.App.APIURL+"/api/webhooks/twilio/voice")
	numbersSvc := numbers.NewService(numbersRepo, twilio)

	phraseSvc := phrase.NewService(phraseRepo, aiSvc, cfg.App.AudioDir, cfg.App.APIURL+"/static/audio")
	callsSvc := calls.NewService(callsRepo, aiSvc)

	var mailer *notify.Mailer
	if cfg.Mail.APIKey != "" {
		mailer = notify.NewMailer(cfg.Mail.APIKey, cfg.Mail.From)
	}
	var telegram *notify.Telegram
	if cfg.Telegram.BotToken != "" {
		telegram = notify.NewTelegram(cfg.Telegram.BotToken)
	}
	notifier := notify.NewNotifier(mailer, telegram, cfg.Telegram.OpsChatID, log)

	auditSvc := audit.NewService(audit.NewSQLRepository(db))

	lemon := billing.NewLemonClient(cfg.LemonSqueezy.APIKey, cfg.LemonSqueezy.StoreID)
	billingSvc := billing.NewService(billingRepo, agentsRepo, numbersSvc, lemon, notifier, auditSvc, rdb)

	callSvc := telephony.NewCallService(
		numbersRepo,
		agentsRepo,
		rdb,
		aiSvc,
		phraseSvc,
		kbSvc,
		callsSvc,
		cfg.App.APIURL,
	)

	refresher := auth.NewGoogleRefresher(cfg.Auth, usersSvc, authManager)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	r.Static("/static/audio", cfg.App.AudioDir)

	httpapi.New(usersSvc, agentsSvc, numbersSvc, kbSvc, callsSvc, billingSvc, authManager, refresher, notifier).Register(r)
	telephony.NewHandler(callSvc).Register(r)
	billing.NewWebhookHandler(billingSvc, cfg.LemonSqueezy.WebhookSecret).Register(r)

	runner, err := jobs.NewRunner(log, billingSvc, phraseSvc)
	if err != nil {
		log.Error("cron init failed", "err", err)
		os.Exit(1)
	}
	runner.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := runner.Stop(shutdownCtx); err != nil {
		log.Error("cron shutdown failed", "err", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
