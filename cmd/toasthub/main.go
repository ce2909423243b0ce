package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"strings"

	"toasthub/internal/api"
	"toasthub/internal/auth"
	"toasthub/internal/automation"
	"toasthub/internal/storage"
	"toasthub/internal/store"
	"toasthub/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

//go:embed all:dist
var embeddedFiles embed.FS

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8069"
	}

	// DB_BACKEND: "sqlite" or "turso" (auto-detects if not set)
	// For SQLite: SQLITE_PATH (defaults to "toasthub.db")
	// For Turso: TURSO_DATABASE_URL, TURSO_AUTH_TOKEN
	s, err := store.New(store.ConfigFromEnv())
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer s.Close()

	am, err := authManagerFromEnv()
	if err != nil {
		logger.Fatal("failed to configure admin auth", zap.Error(err))
	}

	// Object storage is optional; without it the file upload endpoint
	// answers 503.
	var files *storage.Storage
	if os.Getenv("BUCKET_NAME") != "" {
		files, err = storage.New()
		if err != nil {
			logger.Fatal("failed to initialize object storage", zap.Error(err))
		}
	} else {
		logger.Info("object storage not configured, file uploads disabled")
	}

	hub := ws.NewHub(logger)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go automation.NewScheduler(s, hub, logger).Run(ctx)

	a := api.New(s, am, hub, files, logger)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*", "https://*.fly.dev"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Mount("/api", a.Routes())

	// Serve the built frontend from the embedded bundle.
	distFS, err := fs.Sub(embeddedFiles, "dist")
	if err != nil {
		logger.Fatal("failed to create sub filesystem", zap.Error(err))
	}
	fileServer := http.FileServer(http.FS(distFS))

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		if f, err := distFS.Open(strings.TrimPrefix(path, "/")); err == nil {
			f.Close()
			fileServer.ServeHTTP(w, req)
			return
		}

		// SPA fallback: serve index.html for non-file routes
		req.URL.Path = "/"
		fileServer.ServeHTTP(w, req)
	})

	logger.Info("toasthub starting", zap.String("addr", "http://localhost:"+port))
	if err := http.ListenAndServe(":"+port, r); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// authManagerFromEnv builds the login manager from either a bcrypt
// hash or a plaintext password, preferring the hash.
func authManagerFromEnv() (*auth.Manager, error) {
	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		return auth.NewFromHash(hash)
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
	}
	return auth.New(password)
}
