package http

import (
	"errors"
	"io"
	"net/http"

	"gearshare-backend/internal/domain"
	"gearshare-backend/internal/logger"
	"gearshare-backend/internal/service"

	"github.com/gorilla/mux"
)

const (
	signatureHeader = "Stripe-Signature"
	maxWebhookBody  = 64 << 10
)

// Handler serves the booking API over HTTP
type Handler struct {
	bookings      service.BookingService
	payments      service.PaymentService
	webhooks      service.WebhookService
	reviews       service.ReviewService
	messages      service.MessageService
	notifications service.NotificationService
}

func NewHandler(
	bookings service.BookingService,
	payments service.PaymentService,
	webhooks service.WebhookService,
	reviews service.ReviewService,
	messages service.MessageService,
	notifications service.NotificationService,
) *Handler {
	return &Handler{
		bookings:      bookings,
		payments:      payments,
		webhooks:      webhooks,
		reviews:       reviews,
		messages:      messages,
		notifications: notifications,
	}
}

// requireUser returns the authenticated user id or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required", Code: "UNAUTHENTICATED"})
	}
	return userID, ok
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	b, err := h.bookings.CreateBooking(r.Context(), userID, req.GearID, req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	b, err := h.bookings.GetBooking(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	role := domain.ActorRole(r.URL.Query().Get("role"))
	if role == "" {
		role = domain.ActorRenter
	}

	bookings, total, err := h.bookings.ListBookings(r.Context(), userID, role, r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Booking]{Items: nonNil(bookings), Total: total})
}

// TransitionBooking applies a party's requested status change. Moving to paid goes
// through payment confirmation so the hold is checked with the processor first.
func (h *Handler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req transitionRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	to, err := domain.ParseBookingStatus(req.To)
	if err != nil {
		writeError(w, r, err)
		return
	}

	bookingID := mux.Vars(r)["id"]
	var b *domain.Booking
	if to == domain.BookingStatusPaid {
		b, err = h.payments.ConfirmHold(r.Context(), userID, bookingID)
	} else {
		b, err = h.bookings.Transition(r.Context(), userID, bookingID, to, req.Note)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) CreatePaymentHold(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	hold, err := h.payments.CreateHold(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, hold)
}

func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	b, err := h.payments.ConfirmHold(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, total, err := h.messages.ListMessages(r.Context(), userID, mux.Vars(r)["id"], page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Message]{Items: nonNil(msgs), Total: total})
}

func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.messages.PostMessage(r.Context(), userID, mux.Vars(r)["id"], req.Body, domain.MessageType(req.MessageType))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) ListReviews(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	reviews, err := h.reviews.ListReviews(r.Context(), userID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Review]{Items: nonNil(reviews), Total: int32(len(reviews))})
}

func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var req submitReviewRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	review, err := h.reviews.SubmitReview(r.Context(), userID, mux.Vars(r)["id"], req.ratings())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, pageSize, err := pageParams(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	notes, total, err := h.notifications.GetNotifications(r.Context(), userID, page, pageSize)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Notification]{Items: nonNil(notes), Total: total})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	if err := h.notifications.MarkAsRead(r.Context(), userID, mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentWebhook receives processor events. Anything the reconciler handled, including
// orphan and ignored events, is acknowledged with 200 so the processor stops redelivering.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body", Code: "INVALID_INPUT"})
		return
	}

	outcome, err := h.webhooks.HandleEvent(r.Context(), payload, r.Header.Get(signatureHeader))
	var retryable *service.RetryableError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"outcome": string(outcome)})
	case errors.As(err, &retryable):
		logger.Warn("Webhook delivery failed, processor will retry", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "temporary failure", Code: "RETRY"})
	default:
		writeError(w, r, err)
	}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
