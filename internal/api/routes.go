// 文件: internal/api/routes.go
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/Enochung/PhotoConsolidationBackEndSys/config"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/catalog"
	"github.com/Enochung/PhotoConsolidationBackEndSys/pkg/report"
)

// RegisterRoutes 注册所有API路由
func RegisterRoutes(cfg *config.Config, gen *report.Generator, cat *catalog.Catalog) *chi.Mux {
	r := chi.NewRouter()

	// --- 中间件 (Middleware) ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	// 配置CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	handlers := NewAPIHandlers(cfg, gen, cat)

	prefix := cfg.Server.APIPrefix
	if prefix == "" {
		prefix = "/"
	}

	// --- API路由 ---
	r.Route(prefix, func(r chi.Router) {
		r.Post("/upload", handlers.HandleUpload)
		r.Get("/files", handlers.HandleListFiles)
		r.Post("/download/{filename}", handlers.HandleDownload)
		r.Get("/download/{filename}", handlers.HandleDownload)
		r.Post("/delete/{filename}", handlers.HandleDelete)
		r.Delete("/delete/{filename}", handlers.HandleDelete)
		r.Get("/config", handlers.HandleGetConfig)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
