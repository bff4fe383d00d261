package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/savora-food/api/internal/config"
	"github.com/savora-food/api/internal/database"
	"github.com/savora-food/api/internal/handler"
	mw "github.com/savora-food/api/internal/middleware"
	"github.com/savora-food/api/internal/notify"
	"github.com/savora-food/api/internal/service"
	"github.com/savora-food/api/internal/upload"
	"github.com/savora-food/api/internal/ws"
)

// Deps are the collaborators the router wires into handlers and services.
type Deps struct {
	Hub      *ws.Hub
	Gateway  service.PaymentGateway
	Notifier notify.Notifier
	Uploads  *upload.Store
	// Analyzer may be nil; image analysis then answers 503.
	Analyzer handler.ImageAnalyzer

	// Per-IP limiters for the public contact form and the AI endpoint.
	ContactLimiter *mw.RateLimiter
	AILimiter      *mw.RateLimiter
}

// New creates a Chi router with all application routes wired up.
// Applies authentication and the customer / admin / super-admin gates.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, deps Deps) chi.Router {
	handler.SetVerboseErrors(cfg.IsDevelopment())

	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Uploaded images are served as static files.
	if deps.Uploads != nil {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.Uploads.Dir())))
		r.Get("/uploads/*", fs.ServeHTTP)
	}

	// WebSocket route (handles auth internally via query param)
	if deps.Hub != nil {
		r.Method("GET", "/ws/orders", ws.NewHandler(deps.Hub, cfg.JWTSecret, cfg.CORSOrigins))
	}

	// Services
	var events service.EventPublisher
	if deps.Hub != nil {
		events = deps.Hub
	}
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, events)
	paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	}, deps.Gateway, cfg.Currency, events)
	reviewService := service.NewReviewService(pool, func(db database.DBTX) service.ReviewStore {
		return database.New(db)
	})

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}

	// Handlers
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	adminHandler := handler.NewAdminHandler(queries, notifier)
	menuHandler := handler.NewMenuItemHandler(queries)
	reviewHandler := handler.NewReviewHandler(reviewService, queries)
	chefHandler := handler.NewChefHandler(queries)
	orderHandler := handler.NewOrderHandler(orderService, queries)
	paymentHandler := handler.NewPaymentHandler(paymentService, queries)
	companyHandler := handler.NewCompanyHandler(queries)
	contactHandler := handler.NewContactHandler(queries)

	// Public routes
	authHandler.RegisterRoutes(r)
	menuHandler.RegisterRoutes(r)
	reviewHandler.RegisterRoutes(r)
	chefHandler.RegisterRoutes(r)
	companyHandler.RegisterRoutes(r)
	r.Group(func(r chi.Router) {
		if deps.ContactLimiter != nil {
			r.Use(deps.ContactLimiter.Handler)
		}
		contactHandler.RegisterRoutes(r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		orderHandler.RegisterRoutes(r)
		paymentHandler.RegisterRoutes(r)

		// Customer routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireCustomer)
			r.Get("/auth/me", authHandler.CustomerMe)
			reviewHandler.RegisterCustomerRoutes(r)
			orderHandler.RegisterCustomerRoutes(r)
			paymentHandler.RegisterCustomerRoutes(r)
		})

		// Restaurant admin routes (approved admins and super-admins)
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAdmin)
			r.Get("/admin/auth/me", authHandler.AdminMe)
			menuHandler.RegisterAdminRoutes(r)
			chefHandler.RegisterAdminRoutes(r)
			orderHandler.RegisterAdminRoutes(r)
			paymentHandler.RegisterAdminRoutes(r)

			if deps.Uploads != nil {
				uploadHandler := handler.NewUploadHandler(deps.Uploads, deps.Analyzer)
				uploadHandler.RegisterRoutes(r)
				r.Group(func(r chi.Router) {
					if deps.AILimiter != nil {
						r.Use(deps.AILimiter.Handler)
					}
					uploadHandler.RegisterAIRoutes(r)
				})
			}
		})

		// Super-admin routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireSuperAdmin)
			r.Route("/admins", adminHandler.RegisterRoutes)
			companyHandler.RegisterSuperAdminRoutes(r)
			contactHandler.RegisterSuperAdminRoutes(r)
		})
	})

	log.Println("Router initialized with all handlers")

	return r
}
