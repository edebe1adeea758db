package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fixora/accounts/infrastructure/http/middleware"
	"github.com/fixora/accounts/infrastructure/http/response"
	"github.com/fixora/accounts/infrastructure/service/logger"
)

type RouterConfig struct {
	DocsDir              string
	CORSEnabled          bool
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
}

// NewRouter assembles the account routes, health check, API docs and the ambient middleware chain.
func NewRouter(config RouterConfig, accountHandler *AccountHandler, log logger.Logger) http.Handler {
	router := mux.NewRouter()

	accountHandler.RegisterRoutes(router)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	if config.DocsDir != "" {
		router.PathPrefix("/api-docs/").Handler(
			http.StripPrefix("/api-docs/", http.FileServer(http.Dir(config.DocsDir))),
		).Methods(http.MethodGet)
	}

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Ruta no encontrada")
	})

	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Recovery(log))

	var handler http.Handler = router
	if config.CORSEnabled {
		handler = middleware.CORSMiddleware(handler, config.CORSAllowedOrigins, config.CORSAllowCredentials)
	}
	return middleware.CorrelationIDMiddleware(handler)
}
