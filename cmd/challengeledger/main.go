package main

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	// Autoloads .env file to supply environment variables
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/lildude/challengeledger/internal/breaks"
	"github.com/lildude/challengeledger/internal/cache"
	"github.com/lildude/challengeledger/internal/client"
	"github.com/lildude/challengeledger/internal/config"
	"github.com/lildude/challengeledger/internal/fetcher"
	"github.com/lildude/challengeledger/internal/handlers/auth"
	"github.com/lildude/challengeledger/internal/handlers/callback"
	"github.com/lildude/challengeledger/internal/handlers/total"
	"github.com/lildude/challengeledger/internal/handlers/update"
	"github.com/lildude/challengeledger/internal/ledger"
	"github.com/lildude/challengeledger/internal/logger"
	"github.com/lildude/challengeledger/internal/metrics"
	"github.com/lildude/challengeledger/internal/middleware"
	"github.com/lildude/challengeledger/internal/payments"
	"github.com/lildude/challengeledger/internal/report"
	"github.com/lildude/challengeledger/internal/scoring"
	"github.com/lildude/challengeledger/internal/strava"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("unable to load config")
	}
	log := logger.NewLogger(cfg.LogLevel)

	year := cfg.ChallengeYear(time.Now())
	dir := cfg.YearDir(year)
	rules, err := config.LoadRules(dir, cfg.RulesTemplate)
	if err != nil {
		log.WithError(err).Fatal("unable to load rules")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	store := ledger.New(dir, rules, log, m)

	var pageCache cache.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCache(context.Background(), cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.WithError(err).Warn("activity cache disabled")
		} else {
			defer rc.Close()
			pageCache = rc
		}
	}

	baseURL, err := url.Parse(strava.BaseURL)
	if err != nil {
		log.WithError(err).Fatal("invalid strava base url")
	}
	oauthConfig := strava.NewOauthConfig(cfg.StravaClientID, cfg.StravaClientSecret, cfg.StravaRedirectURI)
	refresher := strava.Refresher{Config: oauthConfig}

	evaluator := &payments.Evaluator{
		Store:     store,
		Refresher: refresher,
		Fetcher:   fetcher.New(strava.NewCaller(baseURL, pageCache, m, log), log),
		Weeks:     scoring.DailyPoints{MinMinutes: rules.HitMinTime},
		Rules:     rules,
		Year:      year,
		WindowEnd: cfg.WindowEnd,
		Log:       log,
		Metrics:   m,
	}
	if cfg.BreaksCalendarURL != "" {
		evaluator.Breaks = breaks.NewCalendar(http.DefaultClient, cfg.BreaksCalendarURL)
	}

	renderer, err := report.New(cfg.Language, cfg.Currency)
	if err != nil {
		log.WithError(err).Fatal("unable to set up report")
	}

	authHandler := &auth.Handler{
		OAuth:      oauthConfig,
		StateToken: cfg.StateToken,
		Store:      store,
		Log:        log,
	}
	if cfg.StravaCallbackURL != "" {
		authHandler.Subscriber = &strava.Subscriber{
			Client:       client.NewClient(baseURL, nil),
			ClientID:     cfg.StravaClientID,
			ClientSecret: cfg.StravaClientSecret,
			CallbackURL:  cfg.StravaCallbackURL,
			VerifyToken:  cfg.StravaVerifyToken,
		}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger(log))

	r.Get("/start", indexHandler)
	r.Get("/auth", authHandler.ServeHTTP)
	r.Get("/webhook", callback.New(cfg.StravaVerifyToken, log))
	r.Post("/webhook", (&update.Handler{Store: store, Refresher: refresher, BaseURL: baseURL, Log: log}).ServeHTTP)
	r.With(middleware.RequireToken(cfg.AdminToken)).Get("/total", total.New(evaluator, renderer, log))
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	port := cfg.Addr
	if val, ok := os.LookupEnv("FUNCTIONS_CUSTOMHANDLER_PORT"); ok {
		port = ":" + val
	}
	log.WithFields(logrus.Fields{"addr": port, "year": year, "data_dir": dir}).Info("starting server")
	srv := &http.Server{Addr: port, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	if err := srv.ListenAndServe(); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("Challenge Ledger")); err != nil {
		logrus.WithError(err).Error("writing index")
	}
}
