package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/crawl-api/internal/api"
	apiMiddleware "github.com/phrazzld/crawl-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))

	taskHandler := api.NewTaskHandler(app.executor, app.history, app.logger)
	dataHandler := api.NewDataHandler(app.output, app.logger)
	api.RegisterRoutes(r, taskHandler, dataHandler)

	return r
}
