package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/softside/user-message/internal/authz"
	"github.com/softside/user-message/internal/domain"
	"github.com/softside/user-message/internal/observability/metrics"
	obsmw "github.com/softside/user-message/internal/observability/middleware"
	"github.com/softside/user-message/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type sendRequest struct {
	ReceiverID string `json:"receiverId"`
	Body       string `json:"body"`
}

type messageResponse struct {
	ID         string     `json:"id"`
	Body       string     `json:"body"`
	SenderID   string     `json:"senderId"`
	ReceiverID string     `json:"receiverId"`
	SentAt     time.Time  `json:"sentAt"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
}

type contactResponse struct {
	ID           string    `json:"id"`
	WithUserID   string    `json:"withUserId"`
	Preview      string    `json:"preview"`
	LatestSentAt time.Time `json:"latestSentAt"`
	Unread       int64     `json:"unread"`
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

// caller resolves the authenticated user id from the bearer token subject.
func caller(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	sub, ok := authz.SubjectFrom(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sub)
	if err != nil {
		http.Error(w, "invalid token subject", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return id, true
}

func toMessageResponse(m domain.Message) messageResponse {
	return messageResponse{
		ID:         m.ID.String(),
		Body:       m.Body,
		SenderID:   m.SenderID.String(),
		ReceiverID: m.ReceiverID.String(),
		SentAt:     m.SentAt,
		ReadAt:     m.ReadAt,
	}
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	sender, ok := caller(w, r)
	if !ok {
		return
	}
	reqID := obsmw.RequestIDFromContext(r.Context())
	traceID := obsmw.TraceIDFromContext(r.Context())
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		metrics.MessagesSentTotal.WithLabelValues("failure").Inc()
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		http.Error(w, "body is required", http.StatusBadRequest)
		metrics.MessagesSentTotal.WithLabelValues("failure").Inc()
		return
	}
	receiver, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		http.Error(w, "invalid receiverId", http.StatusBadRequest)
		metrics.MessagesSentTotal.WithLabelValues("failure").Inc()
		return
	}
	msg, err := h.svc.Send(r.Context(), sender, receiver, req.Body)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		metrics.MessagesSentTotal.WithLabelValues("failure").Inc()
		slog.Warn("send failed", "error", err, "request_id", reqID, "trace_id", traceID)
		return
	}
	metrics.MessagesSentTotal.WithLabelValues("success").Inc()
	slog.Info("message sent", "message_id", msg.ID, "sender_id", sender, "receiver_id", receiver, "request_id", reqID, "trace_id", traceID)
	writeJSON(w, http.StatusCreated, toMessageResponse(msg))
}

func (h *Handler) handleConversation(w http.ResponseWriter, r *http.Request) {
	viewer, ok := caller(w, r)
	if !ok {
		return
	}
	reqID := obsmw.RequestIDFromContext(r.Context())
	traceID := obsmw.TraceIDFromContext(r.Context())
	other, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		metrics.ConversationsFetchedTotal.WithLabelValues("failure").Inc()
		return
	}
	msgs, err := h.svc.ConversationBetween(r.Context(), viewer, other)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrInvalidRequest) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		metrics.ConversationsFetchedTotal.WithLabelValues("failure").Inc()
		slog.Warn("conversation fetch failed", "error", err, "request_id", reqID, "trace_id", traceID)
		return
	}
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	metrics.ConversationsFetchedTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(w, r)
	if !ok {
		return
	}
	var (
		count int64
		err   error
		scope = "total"
	)
	if from := r.URL.Query().Get("from"); from != "" {
		fromID, parseErr := uuid.Parse(from)
		if parseErr != nil {
			http.Error(w, "invalid from", http.StatusBadRequest)
			return
		}
		scope = "pair"
		count, err = h.svc.CountUnreadBetween(r.Context(), fromID, me)
	} else {
		count, err = h.svc.CountUnreadFor(r.Context(), me)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.UnreadLookupsTotal.WithLabelValues(scope).Inc()
	writeJSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.svc.MarkRead(r.Context(), id, me); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}
	if err := h.svc.DeleteForUser(r.Context(), id, me); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleContacts(w http.ResponseWriter, r *http.Request) {
	me, ok := caller(w, r)
	if !ok {
		return
	}
	reqID := obsmw.RequestIDFromContext(r.Context())
	traceID := obsmw.TraceIDFromContext(r.Context())
	contacts, err := h.svc.ContactsFor(r.Context(), me)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		metrics.ContactListFetchesTotal.WithLabelValues("failure").Inc()
		slog.Warn("contact list failed", "error", err, "request_id", reqID, "trace_id", traceID)
		return
	}
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		other, err := c.OppositeUser(me)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			metrics.ContactListFetchesTotal.WithLabelValues("failure").Inc()
			return
		}
		unread, err := h.svc.CountUnreadBetween(r.Context(), other, me)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			metrics.ContactListFetchesTotal.WithLabelValues("failure").Inc()
			return
		}
		out = append(out, contactResponse{
			ID:           c.ID.String(),
			WithUserID:   other.String(),
			Preview:      previewBody(c.LatestMessage.Body),
			LatestSentAt: c.LatestMessage.SentAt,
			Unread:       unread,
		})
	}
	metrics.ContactListFetchesTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, out)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrMessageNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotParticipant):
		status = http.StatusForbidden
	}
	http.Error(w, err.Error(), status)
}

// previewBody is the contact-list display rule: the first ten words of the
// body, with an ellipsis when truncated.
func previewBody(body string) string {
	words := strings.Fields(body)
	if len(words) <= 10 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:10], " ") + " ..."
}
