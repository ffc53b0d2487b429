package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

// parseIntQuery reads an integer query parameter with a default.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return defaultValue
	}
	return n
}

// emitEventRequest is the body of POST /events.
type emitEventRequest struct {
	EventName string                  `json:"event_name"`
	Payload   map[string]string       `json:"payload"`
	Audience  models.AudienceCriteria `json:"audience_criteria"`
	Priority  models.Priority         `json:"priority"`
	SenderID  string                  `json:"sender_id"`
}

// eventsHandler accepts a business event and dispatches it. The dispatch
// contract is fire-and-forget: any parseable body is accepted with 202, and
// the caller never observes a notification failure.
func (s *Server) eventsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req emitEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.eventsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	s.dispatcher.EmitEvent(r.Context(), req.EventName, req.Payload, req.Audience, req.Priority, req.SenderID)
	writeJSONResponse(w, http.StatusAccepted, models.Accepted("Event accepted"))
}

// notificationsHandler lists a user's inbox, newest first.
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required parameter: user_id"))
		return
	}
	limit := parseIntQuery(r, "limit", 50)
	offset := parseIntQuery(r, "offset", 0)

	records, err := s.store.ListNotifications(userID, limit, offset)
	if err != nil {
		slog.Error("Server.notificationsHandler: list failed", "user_id", userID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list notifications"))
		return
	}
	unread, err := s.store.CountUnreadNotifications(userID)
	if err != nil {
		slog.Error("Server.notificationsHandler: unread count failed", "user_id", userID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to count notifications"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"notifications": records,
		"unread":        unread,
	}))
}

// markReadRequest is the body of POST /notifications/read.
type markReadRequest struct {
	UserID         string `json:"user_id"`
	NotificationID string `json:"notification_id"`
	All            bool   `json:"all"`
}

func (s *Server) notificationsReadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: user_id"))
		return
	}

	if req.All {
		n, err := s.store.MarkAllNotificationsRead(req.UserID, time.Now())
		if err != nil {
			slog.Error("Server.notificationsReadHandler: mark all failed", "user_id", req.UserID, "error", err)
			writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to mark notifications read"))
			return
		}
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Notifications marked read", map[string]int{"marked": n}))
		return
	}

	if req.NotificationID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: notification_id"))
		return
	}
	err := s.store.MarkNotificationRead(req.NotificationID, req.UserID, time.Now())
	if err == models.ErrNotificationNotFound {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Notification not found"))
		return
	}
	if err != nil {
		slog.Error("Server.notificationsReadHandler: mark failed", "id", req.NotificationID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to mark notification read"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Notification marked read", nil))
}

// registerDeviceRequest is the body of POST /devices.
type registerDeviceRequest struct {
	UserID   string              `json:"user_id"`
	Provider models.ProviderName `json:"provider"`
	Token    string              `json:"token"`
}

func (s *Server) devicesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.UserID == "" || req.Token == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required fields: user_id, token"))
		return
	}
	// Only push providers carry device identities.
	if req.Provider != models.ProviderFCM && req.Provider != models.ProviderOneSignal {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unsupported push provider"))
		return
	}

	err := s.store.RegisterDeviceToken(models.DeviceToken{
		UserID:   req.UserID,
		Provider: req.Provider,
		Token:    req.Token,
	})
	if err != nil {
		slog.Error("Server.devicesHandler: register failed", "user_id", req.UserID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to register device"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Device registered", nil))
}

// outboxHandler lists outbox entries by status for operator inspection.
// Defaults to the dead-letter queue.
func (s *Server) outboxHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := models.OutboxStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = models.OutboxStatusDead
	}
	switch status {
	case models.OutboxStatusQueued, models.OutboxStatusSent, models.OutboxStatusFailed,
		models.OutboxStatusRetrying, models.OutboxStatusDead:
	default:
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unknown outbox status"))
		return
	}
	limit := parseIntQuery(r, "limit", 100)

	entries, err := s.store.ListOutboxByStatus(status, limit)
	if err != nil {
		slog.Error("Server.outboxHandler: list failed", "status", status, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to list outbox entries"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(entries))
}

// outboxResetRequest is the body of POST /outbox/reset.
type outboxResetRequest struct {
	ID string `json:"id"`
}

// outboxResetHandler manually revives an entry (typically a dead one) back to
// queued with a cleared attempts counter.
func (s *Server) outboxResetHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req outboxResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Missing required field: id"))
		return
	}

	err := s.store.ResetOutboxEntry(req.ID, time.Now())
	if err == models.ErrEntryNotFound {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Outbox entry not found"))
		return
	}
	if err != nil {
		slog.Error("Server.outboxResetHandler: reset failed", "id", req.ID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to reset outbox entry"))
		return
	}
	slog.Info("Server.outboxResetHandler: entry reset", "id", req.ID)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Outbox entry re-queued", nil))
}
