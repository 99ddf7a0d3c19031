package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/patwikx/twc-platform/internal/domain"
	"github.com/patwikx/twc-platform/internal/repository"
	"github.com/patwikx/twc-platform/internal/response"
	"github.com/patwikx/twc-platform/internal/service"
	"github.com/patwikx/twc-platform/pkg/auth"
	"github.com/patwikx/twc-platform/pkg/config"
	"github.com/patwikx/twc-platform/pkg/logger"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// Sweeper triggers an expiration pass on demand.
type Sweeper interface {
	SweepOnce(ctx context.Context) (int, error)
}

type Handlers struct {
	bookings     service.BookingService
	availability service.AvailabilityService
	audit        service.AuditService
	auth         service.AuthService
	sweeper      Sweeper
	rooms        repository.RoomRepository
	config       *config.Config
}

func New(
	bookings service.BookingService,
	availability service.AvailabilityService,
	audit service.AuditService,
	authService service.AuthService,
	sweeper Sweeper,
	rooms repository.RoomRepository,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		bookings:     bookings,
		availability: availability,
		audit:        audit,
		auth:         authService,
		sweeper:      sweeper,
		rooms:        rooms,
		config:       cfg,
	}
}

// Routes assembles the API surface. The two throttles come from the
// caller because the limiter store's lifecycle belongs to the process
// supervisor, not the handler layer.
func (h *Handlers) Routes(throttleBookings, throttleMutations func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// Public guest surface
	r.Route("/rooms", func(r chi.Router) {
		r.Get("/", h.ListRooms)
		r.Get("/{id}/availability", h.CheckAvailability)
		r.Get("/{id}/calendar", h.AvailabilityCalendar)
	})

	r.Route("/bookings", func(r chi.Router) {
		r.With(throttleBookings).Post("/", h.CreateBooking)
		r.Get("/lookup", h.LookupBooking)
		r.Get("/manage", h.GetManagedBooking)
		r.With(throttleMutations).Delete("/manage", h.CancelManagedBooking)
	})

	// Payment callbacks authenticate by signature, not JWT
	r.Post("/payments/stripe/webhook", h.StripeWebhook)

	r.Route("/auth", func(r chi.Router) {
		r.With(throttleMutations).Post("/login", h.Login)
		r.With(h.RequireJWT("")).Get("/me", h.Me)
	})

	// Staff surface
	r.Route("/admin", func(r chi.Router) {
		r.Route("/bookings", func(r chi.Router) {
			r.Use(h.RequireJWT("front_desk"))
			r.Get("/", h.ListBookings)
			r.Get("/{id}", h.GetBooking)
			r.With(throttleMutations).Post("/{id}/checkin", h.CheckInBooking)
			r.With(throttleMutations).Delete("/{id}", h.CancelBooking)
		})

		r.Route("/audit", func(r chi.Router) {
			r.Use(h.RequireJWT("admin"))
			r.Get("/", h.ListAuditLogs)
			r.Get("/entity/{type}/{id}", h.AuditEntityHistory)
			r.Get("/user/{id}", h.AuditUserActivity)
		})

		r.With(h.RequireJWT("admin"), throttleMutations).Post("/sweep", h.RunSweep)
	})

	return r
}

// RequireJWT gates staff routes. An empty requiredRole accepts any
// authenticated staff member; admins pass every role check.
func (h *Handlers) RequireJWT(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				response.Unauthorized(w, "missing or invalid authorization header")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
			if err != nil {
				response.Unauthorized(w, "invalid token")
				return
			}

			if requiredRole != "" && claims.Role != requiredRole && claims.Role != domain.RoleAdmin {
				response.Forbidden(w, "insufficient permissions")
				return
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Helper to get staff claims from context
func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

// Helper to parse pagination parameters
func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
