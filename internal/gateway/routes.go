// Package gateway wires the grading engines behind a chi HTTP router.
package gateway

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-jwt/jwt/v5"

	"acadgrade/internal/aggregate"
	"acadgrade/internal/export"
	"acadgrade/internal/gateway/handlers"
	"acadgrade/internal/gateway/util"
	"acadgrade/internal/ingest"
	"acadgrade/internal/shared"
	"acadgrade/internal/store"
)

// Engines groups the services the router exposes.
type Engines struct {
	Store     store.Store
	Ingest    *ingest.Service
	Aggregate *aggregate.Service
	Export    *export.Service
}

// SetupRoutes configures the chi router, middleware, and route handlers.
func SetupRoutes(cfg *shared.ServiceConfig, engines Engines) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   cfg.CORS.AllowedMethods,
		AllowedHeaders:   cfg.CORS.AllowedHeaders,
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           cfg.CORS.MaxAge,
	}))

	// 2. Initialize Handlers
	gradeHandler := &handlers.GradeHandler{
		Store:  engines.Store,
		Ingest: engines.Ingest,
		Export: engines.Export,
	}
	studentHandler := &handlers.StudentHandler{
		Store:     engines.Store,
		Aggregate: engines.Aggregate,
	}

	// 3. Define Routes (grouped by prefix)
	r.Route("/api", func(r chi.Router) {

		// Health check stays public.
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			util.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"success": true,
				"service": cfg.ServiceName,
				"status":  "ok",
			})
		})

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Security.JWTSecret))

			r.Route("/grades", func(r chi.Router) {
				r.Post("/", gradeHandler.ApplyGrade)
				r.Put("/{grade_id}", gradeHandler.UpdateGrade)
				r.Post("/bulk", gradeHandler.BulkUpdate)
			})

			r.Route("/assessments/{id}", func(r chi.Router) {
				r.Get("/grades", gradeHandler.ListGrades)
				r.Post("/grades/import", gradeHandler.ImportCSV)
				r.Get("/grades/export", gradeHandler.ExportCSV)
				r.Get("/grades/export.xlsx", gradeHandler.ExportXLSX)
				r.Get("/stats", gradeHandler.Stats)
				r.Get("/analytics", gradeHandler.Analytics)
				r.Patch("/lock", gradeHandler.SetLock)
			})

			r.Route("/students/{id}", func(r chi.Router) {
				r.Get("/gpa", studentHandler.GetGPA)
				r.Get("/results", studentHandler.GetResults)
				r.Post("/recompute", studentHandler.Recompute)
			})

			r.Get("/analytics", gradeHandler.ScopeAnalytics)
		})
	})

	return r
}

// AuthMiddleware validates the bearer token and injects its claims into the
// request context. Tokens are HMAC-signed with the shared secret.
func AuthMiddleware(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Extract Token
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			// 2. Parse and verify
			claims := &handlers.UserClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				util.WriteJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			// 3. Inject User into Context
			ctxWithUser := handlers.ContextWithUser(r.Context(), claims)
			next.ServeHTTP(w, r.WithContext(ctxWithUser))
		})
	}
}
