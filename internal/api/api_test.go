package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/notify"
	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, store.Store) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "api_test_")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	s, err := store.NewSQLiteStore(store.WithSQLiteDSN(filepath.Join(tempDir, "test.db")))
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := NewServer("127.0.0.1:0", s, notify.NewDispatcher(s))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, s
}

func decodeResponse(t *testing.T, resp *http.Response) models.APIResponse {
	t.Helper()
	defer resp.Body.Close()
	var out models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return out
}

func TestEventsEndpoint_AcceptsAndDispatches(t *testing.T) {
	ts, s := newTestServer(t)
	if err := s.CreateUser(models.User{ID: "user-42", Name: "شريك", Role: models.RolePartner, PartnerStatus: models.PartnerStatusApproved, Active: true}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	s.RegisterDeviceToken(models.DeviceToken{UserID: "user-42", Provider: models.ProviderFCM, Token: "tok-42"})

	body := `{
		"event_name": "ESTABLISHMENT_APPROVED",
		"payload": {"place_name": "Cafe X", "establishment_id": "est-7"},
		"audience_criteria": {"user_id": "user-42"},
		"priority": "normal"
	}`
	resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /events failed: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("Expected 202, got %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	if out.Status != models.APIStatusAccepted {
		t.Errorf("Expected accepted status, got %q", out.Status)
	}

	records, _ := s.ListNotifications("user-42", 10, 0)
	if len(records) != 1 || records[0].Title != "تم قبول المنشأة" {
		t.Errorf("Expected dispatched notification record, got %v", records)
	}
	queued, _ := s.ListOutboxByStatus(models.OutboxStatusQueued, 10)
	if len(queued) != 1 {
		t.Errorf("Expected 1 queued outbox entry, got %d", len(queued))
	}
}

func TestEventsEndpoint_MalformedBody(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("POST /events failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestEventsEndpoint_UnknownEventStillAccepted(t *testing.T) {
	ts, _ := newTestServer(t)
	body := `{"event_name": "NO_SUCH_EVENT", "audience_criteria": {}}`
	resp, err := http.Post(ts.URL+"/events", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /events failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("Expected 202 for unknown event with empty audience, got %d", resp.StatusCode)
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	ts, s := newTestServer(t)
	err := s.CreateNotifications([]models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "تقييم جديد", Body: "نص"},
	})
	if err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}

	resp, err := http.Get(ts.URL + "/notifications?user_id=user-1")
	if err != nil {
		t.Fatalf("GET /notifications failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	result, ok := out.Result.(map[string]interface{})
	if !ok {
		t.Fatalf("Expected result object, got %T", out.Result)
	}
	if unread, _ := result["unread"].(float64); unread != 1 {
		t.Errorf("Expected 1 unread, got %v", result["unread"])
	}

	resp, err = http.Get(ts.URL + "/notifications")
	if err != nil {
		t.Fatalf("GET /notifications failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without user_id, got %d", resp.StatusCode)
	}
}

func TestNotificationsReadEndpoint(t *testing.T) {
	ts, s := newTestServer(t)
	err := s.CreateNotifications([]models.NotificationRecord{
		{RecipientID: "user-1", Type: models.NotifTypeNewReview, Title: "أ", Body: "ب"},
		{RecipientID: "user-1", Type: models.NotifTypeAdApproved, Title: "ج", Body: "د"},
	})
	if err != nil {
		t.Fatalf("CreateNotifications failed: %v", err)
	}
	list, _ := s.ListNotifications("user-1", 10, 0)

	body := `{"user_id": "user-1", "notification_id": "` + list[0].ID + `"}`
	resp, err := http.Post(ts.URL+"/notifications/read", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /notifications/read failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/notifications/read", "application/json", strings.NewReader(`{"user_id": "user-1", "all": true}`))
	if err != nil {
		t.Fatalf("POST /notifications/read failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for mark-all, got %d", resp.StatusCode)
	}
	unread, _ := s.CountUnreadNotifications("user-1")
	if unread != 0 {
		t.Errorf("Expected 0 unread after mark-all, got %d", unread)
	}

	resp, err = http.Post(ts.URL+"/notifications/read", "application/json", strings.NewReader(`{"user_id": "user-1", "notification_id": "missing"}`))
	if err != nil {
		t.Fatalf("POST /notifications/read failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for missing notification, got %d", resp.StatusCode)
	}
}

func TestDevicesEndpoint(t *testing.T) {
	ts, s := newTestServer(t)

	body := `{"user_id": "user-1", "provider": "fcm", "token": "tok-1"}`
	resp, err := http.Post(ts.URL+"/devices", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /devices failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	tokens, _ := s.ListDeviceTokens("user-1")
	if len(tokens) != 1 || tokens[0].Token != "tok-1" {
		t.Errorf("Expected registered token, got %v", tokens)
	}

	resp, err = http.Post(ts.URL+"/devices", "application/json", strings.NewReader(`{"user_id": "user-1", "provider": "email", "token": "x"}`))
	if err != nil {
		t.Fatalf("POST /devices failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-push provider, got %d", resp.StatusCode)
	}
}

func TestOutboxEndpoints(t *testing.T) {
	ts, s := newTestServer(t)
	e := &models.OutboxEntry{RecipientID: "user-1", Channel: models.ChannelPush, Provider: models.ProviderFCM, Title: "ت", Body: "ب"}
	if err := s.CreateOutboxEntry(e); err != nil {
		t.Fatalf("CreateOutboxEntry failed: %v", err)
	}
	for i := 0; i < models.DefaultMaxAttempts; i++ {
		s.MarkOutboxFailed(e.ID, "err", time.Now())
	}

	// Default listing is the dead-letter queue.
	resp, err := http.Get(ts.URL + "/outbox")
	if err != nil {
		t.Fatalf("GET /outbox failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	out := decodeResponse(t, resp)
	entries, ok := out.Result.([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("Expected 1 dead entry, got %v", out.Result)
	}

	resp, err = http.Get(ts.URL + "/outbox?status=bogus")
	if err != nil {
		t.Fatalf("GET /outbox failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown status, got %d", resp.StatusCode)
	}

	resp, err = http.Post(ts.URL+"/outbox/reset", "application/json", strings.NewReader(`{"id": "`+e.ID+`"}`))
	if err != nil {
		t.Fatalf("POST /outbox/reset failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 for reset, got %d", resp.StatusCode)
	}
	got, _ := s.GetOutboxEntry(e.ID)
	if got.Status != models.OutboxStatusQueued || got.Attempts != 0 {
		t.Errorf("Expected reset to queued/0, got %s/%d", got.Status, got.Attempts)
	}

	resp, err = http.Post(ts.URL+"/outbox/reset", "application/json", strings.NewReader(`{"id": "outbox_missing"}`))
	if err != nil {
		t.Fatalf("POST /outbox/reset failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for missing entry, got %d", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/events")
	if err != nil {
		t.Fatalf("GET /events failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}
