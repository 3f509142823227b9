package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vibedrinks/api/internal/config"
	"github.com/vibedrinks/api/internal/database"
	"github.com/vibedrinks/api/internal/events"
	"github.com/vibedrinks/api/internal/handler"
	mw "github.com/vibedrinks/api/internal/middleware"
	"github.com/vibedrinks/api/internal/service"
	"github.com/vibedrinks/api/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Every committed order mutation is reported to publisher.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub, publisher events.Publisher) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Live order channel; the token rides in the query string on upgrade
	r.With(mw.Authenticate(cfg.JWTSecret), mw.KitchenStaff).Get("/ws/orders", hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		// Auth routes (public)
		authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
		authHandler.RegisterRoutes(r)

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(cfg.JWTSecret))

			// Catalog
			r.Route("/products", handler.NewProductHandler(queries).RegisterRoutes)
			r.Route("/categories", handler.NewCategoryHandler(queries).RegisterRoutes)

			// Orders and the ingredients consumed by their items
			orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
				return database.New(db)
			})
			ingredientService := service.NewIngredientService(pool, func(db database.DBTX) service.IngredientStore {
				return database.New(db)
			})
			orderHandler := handler.NewOrderHandler(orderService, queries, publisher)
			ingredientHandler := handler.NewIngredientHandler(ingredientService, queries)
			r.Route("/orders", func(r chi.Router) {
				orderHandler.RegisterRoutes(r)
				ingredientHandler.RegisterRoutes(r)
			})

			// Kitchen-only lookups
			r.Group(func(r chi.Router) {
				r.Use(mw.KitchenStaff)
				r.Route("/order-items", handler.NewOrderItemHandler(queries).RegisterRoutes)
				r.Route("/users", handler.NewUserHandler(queries).RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
