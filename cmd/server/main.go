package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/handlers"
	"fintrack/internal/storage"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

type config struct {
	port         string
	dbPath       string
	templateDir  string
	staticDir    string
	baseURL      string
	clientID     string
	clientSecret string
	secureCookie bool
}

func loadConfig() config {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg := config{
		port:         envOr("PORT", "8080"),
		dbPath:       envOr("DB_PATH", "fintrack.db"),
		templateDir:  envOr("TEMPLATE_DIR", "web/templates"),
		staticDir:    envOr("STATIC_DIR", "web/static"),
		clientID:     os.Getenv("GITHUB_CLIENT_ID"),
		clientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		secureCookie: os.Getenv("SECURE_COOKIE") == "true",
	}
	cfg.baseURL = envOr("BASE_URL", "http://localhost:"+cfg.port)
	return cfg
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger() {
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// Public pages
	mux.HandleFunc("GET /{$}", h.Home)
	mux.HandleFunc("GET /auth/signin", h.SignInPage)
	mux.HandleFunc("GET /unauthorized", h.Unauthorized)
	mux.HandleFunc("GET /api-docs", h.APIDocs)

	// OAuth flow
	mux.HandleFunc("GET /auth/github", h.GitHubLogin)
	mux.HandleFunc("GET /auth/github/callback", h.GitHubCallback)
	mux.HandleFunc("POST /auth/signout", h.SignOut)

	// Authenticated pages
	mux.HandleFunc("GET /dashboard", h.Protect(h.Dashboard, handlers.GuardOptions{}))
	mux.HandleFunc("GET /transactions", h.Protect(h.TransactionsPage, handlers.GuardOptions{}))
	mux.HandleFunc("GET /profile", h.Protect(h.ProfilePage, handlers.GuardOptions{}))

	// Admin pages
	mux.HandleFunc("GET /admin/users", h.Protect(h.AdminUsersPage, handlers.AdminPage))
	mux.HandleFunc("GET /admin/reports", h.Protect(h.AdminReportsPage, handlers.AdminPage))

	// Transactions API; write access is enforced per-handler since regular
	// users may still read.
	mux.HandleFunc("GET /api/transactions", h.Protect(h.ListTransactionsAPI, handlers.API))
	mux.HandleFunc("POST /api/transactions", h.Protect(h.CreateTransactionAPI, handlers.API))
	mux.HandleFunc("GET /api/transactions/{id}", h.Protect(h.GetTransactionAPI, handlers.API))
	mux.HandleFunc("PUT /api/transactions/{id}", h.Protect(h.UpdateTransactionAPI, handlers.API))
	mux.HandleFunc("DELETE /api/transactions/{id}", h.Protect(h.DeleteTransactionAPI, handlers.API))

	// User + admin API
	mux.HandleFunc("GET /api/user/profile", h.Protect(h.ProfileAPI, handlers.API))
	mux.HandleFunc("GET /api/admin/users", h.Protect(h.ListUsersAPI, handlers.AdminAPI))
	mux.HandleFunc("PATCH /api/admin/users", h.Protect(h.UpdateUserRoleAPI, handlers.AdminAPI))
	mux.HandleFunc("GET /api/admin/reports", h.Protect(h.ReportsAPI, handlers.AdminAPI))
	mux.HandleFunc("GET /api/admin/reports/chart.png", h.Protect(h.ReportChartAPI, handlers.AdminAPI))

	// Static files
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	return mux
}

func main() {
	setupLogger()
	cfg := loadConfig()

	if cfg.clientID == "" || cfg.clientSecret == "" {
		log.Warn("GITHUB_CLIENT_ID / GITHUB_CLIENT_SECRET not set; sign-in will fail")
	}

	db, err := storage.NewDB(cfg.dbPath)
	if err != nil {
		log.Fatal("failed to open database", "path", cfg.dbPath, "err", err)
	}
	defer db.Close()

	sweeper := auth.NewSweeper(db, time.Hour)
	sweeper.Start()
	defer sweeper.Stop()

	github := auth.NewGitHub(cfg.clientID, cfg.clientSecret, cfg.baseURL)
	h := handlers.NewHandlers(db, github, cfg.templateDir, cfg.secureCookie)

	server := &http.Server{
		Addr:              ":" + cfg.port,
		Handler:           setupRouter(h, cfg.staticDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", server.Addr, "base_url", cfg.baseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", "err", err)
	}
}
