package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/nudge/internal/api"
	apiMiddleware "github.com/phrazzld/nudge/internal/api/middleware"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/phrazzld/nudge/internal/service/auth"
	"github.com/phrazzld/nudge/internal/store"
)

// routes lists what the router needs. subscriber is nil when real-time
// delivery is disabled, which leaves the websocket endpoint unregistered.
type routes struct {
	logger        *slog.Logger
	db            api.Pinger
	validator     auth.TokenValidator
	notifications service.NotificationService
	users         store.UserStore
	jobs          api.JobTrigger
	subscriber    api.Subscriber
}

func (app *application) setupRouter() http.Handler {
	rt := routes{
		logger:        app.logger,
		db:            app.storage.db,
		validator:     app.validator,
		notifications: app.notifications,
		users:         app.storage.users,
		jobs:          app.scheduler,
	}
	if app.hub != nil {
		rt.subscriber = app.hub
	}
	return newRouter(rt)
}

func newRouter(rt routes) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(apiMiddleware.NewTraceMiddleware(rt.logger))
	r.Use(middleware.Recoverer)

	authMiddleware := apiMiddleware.NewAuthMiddleware(rt.validator)
	notificationHandler := api.NewNotificationHandler(rt.notifications, rt.logger)
	jobHandler := api.NewJobHandler(rt.jobs, rt.logger)

	r.Get("/health", api.HealthHandler(rt.db))

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationHandler.List)
			r.Get("/unread", notificationHandler.ListUnread)
			r.Get("/latest", notificationHandler.ListLatest)
			r.Get("/count", notificationHandler.UnreadCount)
			r.Patch("/read-all", notificationHandler.MarkAllRead)
			r.Patch("/{id}/read", notificationHandler.MarkRead)
			r.Delete("/{id}", notificationHandler.Delete)
		})

		r.Post("/jobs/{name}/run", jobHandler.Run)
	})

	if rt.subscriber != nil {
		wsHandler := api.NewWebSocketHandler(rt.users, rt.subscriber, rt.logger)
		r.With(authMiddleware.Authenticate).Get("/ws/notifications", wsHandler.Subscribe)
	}

	return r
}
