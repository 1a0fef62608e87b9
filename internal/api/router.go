package api

import (
	"context"
	"library-engine/internal/api/handler"
	mw "library-engine/internal/api/middleware"
	"library-engine/internal/config"
	"library-engine/internal/domain/borrower"
	"library-engine/internal/domain/catalog"
	"library-engine/internal/domain/circulation"
	"library-engine/internal/domain/review"
	"log/slog"
	"net/http"
	"time"

	_ "library-engine/docs"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/traceid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Services struct {
	Borrowers   borrower.Service
	Catalog     catalog.Service
	Circulation circulation.Service
	Reviews     review.Service
}

// SetupRouter wires every endpoint. ctx bounds background work started by
// the middleware.
func SetupRouter(ctx context.Context, svc Services, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	router := chi.NewRouter()

	setupMiddleware(ctx, router, cfg, logger)
	setupMetricsEndpoint(router, cfg, logger)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	setupSwaggerEndpoint(router, logger)

	auth := mw.AuthMiddleware(cfg.Server.Auth, logger)
	setupAuthRoutes(router, svc, cfg, logger)
	setupBorrowerRoutes(router, auth, svc, logger)
	setupCatalogRoutes(router, auth, svc, cfg, logger)
	setupCirculationRoutes(router, auth, svc, logger)

	return router
}

func setupMiddleware(ctx context.Context, router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(traceid.Middleware)
	router.Use(mw.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(middleware.Timeout(60 * time.Second))
	router.Use(mw.NewRateLimiterMiddleware(ctx, cfg.Server.RateLimit, logger).Middleware)
	router.Use(mw.MetricsMiddleware())
}

func setupMetricsEndpoint(router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	metricsPath := cfg.Metrics.Path
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	logger.Info("Setting up Prometheus metrics endpoint", "path", metricsPath)
	router.Handle(metricsPath, promhttp.Handler())
}

func setupSwaggerEndpoint(router *chi.Mux, logger *slog.Logger) {
	logger.Info("Setting up Swagger UI endpoint", "path", "/swagger/")
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/swagger/index.html", http.StatusMovedPermanently)
	})
}

func setupAuthRoutes(router *chi.Mux, svc Services, cfg *config.Config, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(cfg.Server.Auth, svc.Borrowers, logger)
	router.Route("/auth", func(r chi.Router) {
		r.Post("/token", authHandler.IssueToken)
	})
}

func setupBorrowerRoutes(router *chi.Mux, auth func(http.Handler) http.Handler, svc Services, logger *slog.Logger) {
	h := handler.NewBorrowerHandler(svc.Borrowers, svc.Circulation, logger)

	router.Route("/borrowers", func(r chi.Router) {
		r.Post("/", h.Register)
		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/", h.List)
			r.Get("/me", h.Me)
			r.Put("/me/notification-preference", h.UpdateNotificationPreference)
			r.Route("/{borrowerID}", func(r chi.Router) {
				r.Delete("/", h.Deactivate)
				r.Put("/reactivate", h.Reactivate)
				r.Put("/loan-limit", h.UpdateLoanLimit)
			})
		})
	})
}

func setupCatalogRoutes(router *chi.Mux, auth func(http.Handler) http.Handler, svc Services, cfg *config.Config, logger *slog.Logger) {
	books := handler.NewBookHandler(svc.Catalog, svc.Circulation, svc.Reviews, cfg.Library.SearchPageSize, logger)
	reviews := handler.NewReviewHandler(svc.Reviews, logger)
	circ := handler.NewCirculationHandler(svc.Circulation, logger)
	ref := handler.NewCatalogHandler(svc.Catalog, logger)

	router.Route("/books", func(r chi.Router) {
		r.Get("/", books.Search)
		r.Get("/{bookID}", books.Get)
		r.Get("/{bookID}/availability", books.Availability)
		r.Get("/{bookID}/reviews", reviews.ListForBook)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/", books.Create)
			r.Put("/{bookID}/copies", books.SetCopies)
			r.Get("/{bookID}/queue-position", circ.QueuePosition)
			r.Post("/{bookID}/borrow", circ.Borrow)
			r.Post("/{bookID}/reserve", circ.Reserve)
			r.Post("/{bookID}/reviews", reviews.Add)
		})
	})

	router.Route("/reviews/{reviewID}", func(r chi.Router) {
		r.Use(auth)
		r.Put("/", reviews.Edit)
		r.Delete("/", reviews.Delete)
		r.Put("/approval", reviews.SetApproval)
	})

	router.Route("/categories", func(r chi.Router) {
		r.Get("/", ref.ListCategories)
		r.With(auth).Post("/", ref.CreateCategory)
	})
	router.Route("/authors", func(r chi.Router) {
		r.Get("/", ref.ListAuthors)
		r.With(auth).Post("/", ref.CreateAuthor)
	})
}

func setupCirculationRoutes(router *chi.Mux, auth func(http.Handler) http.Handler, svc Services, logger *slog.Logger) {
	circ := handler.NewCirculationHandler(svc.Circulation, logger)
	fines := handler.NewFineHandler(svc.Circulation, logger)

	router.Route("/loans", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", circ.ListLoans)
		r.Post("/{loanID}/return", circ.Return)
		r.Post("/{loanID}/renew", circ.Renew)
	})

	router.Route("/reservations", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", circ.ListReservations)
		r.Post("/{reservationID}/cancel", circ.CancelReservation)
	})

	router.Route("/fines", func(r chi.Router) {
		r.Use(auth)
		r.Get("/", fines.List)
		r.Post("/{fineID}/pay", fines.Pay)
		r.Post("/{fineID}/waive", fines.Waive)
		r.Post("/{fineID}/dispute", fines.Dispute)
	})
}
