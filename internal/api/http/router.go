package http

import (
	"net/http"

	"gearshare-backend/internal/config"

	"github.com/gorilla/mux"
)

// NewRouter registers every API route. Route names key the security levels in
// config.EndpointSecurityConfig.
func NewRouter(h *Handler, auth *AuthMiddleware) *mux.Router {
	router := mux.NewRouter()
	router.Use(loggingMiddleware, auth.Handler)

	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet).Name(config.RouteHealth)

	// Bookings
	router.HandleFunc("/api/v1/bookings", h.CreateBooking).Methods(http.MethodPost).Name(config.RouteCreateBooking)
	router.HandleFunc("/api/v1/bookings", h.ListBookings).Methods(http.MethodGet).Name(config.RouteListBookings)
	router.HandleFunc("/api/v1/bookings/{id}", h.GetBooking).Methods(http.MethodGet).Name(config.RouteGetBooking)
	router.HandleFunc("/api/v1/bookings/{id}/transition", h.TransitionBooking).Methods(http.MethodPost).Name(config.RouteTransitionBooking)
	router.HandleFunc("/api/v1/bookings/{id}/payment-hold", h.CreatePaymentHold).Methods(http.MethodPost).Name(config.RouteCreatePaymentHold)
	router.HandleFunc("/api/v1/bookings/{id}/payment-confirmation", h.ConfirmPayment).Methods(http.MethodPost).Name(config.RouteConfirmPayment)

	// Messages and reviews
	router.HandleFunc("/api/v1/bookings/{id}/messages", h.ListMessages).Methods(http.MethodGet).Name(config.RouteListMessages)
	router.HandleFunc("/api/v1/bookings/{id}/messages", h.PostMessage).Methods(http.MethodPost).Name(config.RoutePostMessage)
	router.HandleFunc("/api/v1/bookings/{id}/reviews", h.ListReviews).Methods(http.MethodGet).Name(config.RouteListReviews)
	router.HandleFunc("/api/v1/bookings/{id}/review", h.SubmitReview).Methods(http.MethodPost).Name(config.RouteSubmitReview)

	// Notifications
	router.HandleFunc("/api/v1/notifications", h.ListNotifications).Methods(http.MethodGet).Name(config.RouteListNotifications)
	router.HandleFunc("/api/v1/notifications/{id}/read", h.MarkNotificationRead).Methods(http.MethodPost).Name(config.RouteMarkNotificationRead)

	// Processor webhooks
	router.HandleFunc("/api/v1/webhooks/payments", h.PaymentWebhook).Methods(http.MethodPost).Name(config.RoutePaymentWebhook)

	return router
}
