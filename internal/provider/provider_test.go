package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/mohammed-alfattahi/ibb-city-sub001/internal/models"
)

func newFCMTestAdapter(t *testing.T, handler http.HandlerFunc) *FCMAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewFCMAdapter(
		WithFCMServerKey("test-key"),
		WithFCMEndpoint(srv.URL),
		WithFCMHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewFCMAdapter failed: %v", err)
	}
	return a
}

func TestFCMAdapter_SendSuccess(t *testing.T) {
	a := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "key=test-key" {
			t.Errorf("Expected server key header, got %q", got)
		}
		fmt.Fprint(w, `{"success":1,"failure":0,"results":[{"message_id":"m-1"}]}`)
	})

	res, err := a.Send(context.Background(), "token-1", "تم قبول المنشأة", "نص", map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !res.Success || res.MessageID != "m-1" {
		t.Errorf("Expected success with message ID, got %+v", res)
	}
}

func TestFCMAdapter_ServerErrorIsRetriable(t *testing.T) {
	a := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := a.Send(context.Background(), "token-1", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for 500 response")
	}
	if !models.IsRetriable(err) {
		t.Error("Expected 500 to be retriable")
	}
}

func TestFCMAdapter_NotRegisteredIsNonRetriable(t *testing.T) {
	a := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":0,"failure":1,"results":[{"error":"NotRegistered"}]}`)
	})

	_, err := a.Send(context.Background(), "stale-token", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for NotRegistered")
	}
	if models.IsRetriable(err) {
		t.Error("Expected NotRegistered to be non-retriable")
	}
	var pe *models.ProviderError
	if !errors.As(err, &pe) || pe.Provider != models.ProviderFCM {
		t.Errorf("Expected FCM ProviderError, got %v", err)
	}
}

func TestFCMAdapter_BadCredentialsNonRetriable(t *testing.T) {
	a := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := a.Send(context.Background(), "token-1", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for 401 response")
	}
	if models.IsRetriable(err) {
		t.Error("Expected 401 to be non-retriable")
	}
}

func TestFCMAdapter_EmptyTokenNonRetriable(t *testing.T) {
	a := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("No request expected for empty token")
	})

	_, err := a.Send(context.Background(), "", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for empty token")
	}
	if models.IsRetriable(err) {
		t.Error("Expected empty token to be non-retriable")
	}
}

func TestFCMAdapter_RequiresServerKey(t *testing.T) {
	t.Setenv("FCM_SERVER_KEY", "")
	if _, err := NewFCMAdapter(); err == nil {
		t.Error("Expected NewFCMAdapter without key to fail")
	}
}

func newOneSignalTestAdapter(t *testing.T, handler http.HandlerFunc) *OneSignalAdapter {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	a, err := NewOneSignalAdapter(
		WithOneSignalAppID("app-1"),
		WithOneSignalAPIKey("api-key"),
		WithOneSignalEndpoint(srv.URL),
		WithOneSignalHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewOneSignalAdapter failed: %v", err)
	}
	return a
}

func TestOneSignalAdapter_SendSuccess(t *testing.T) {
	a := newOneSignalTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Basic api-key" {
			t.Errorf("Expected API key header, got %q", got)
		}
		fmt.Fprint(w, `{"id":"os-1","recipients":1}`)
	})

	res, err := a.Send(context.Background(), "player-1", "عنوان", "نص", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !res.Success || res.MessageID != "os-1" {
		t.Errorf("Expected success, got %+v", res)
	}
}

func TestOneSignalAdapter_UnsubscribedNonRetriable(t *testing.T) {
	a := newOneSignalTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":"","recipients":0,"errors":["All included players are not subscribed"]}`)
	})

	_, err := a.Send(context.Background(), "player-gone", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for unsubscribed player")
	}
	if models.IsRetriable(err) {
		t.Error("Expected unsubscribed player to be non-retriable")
	}
}

func TestOneSignalAdapter_RateLimitIsRetriable(t *testing.T) {
	a := newOneSignalTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := a.Send(context.Background(), "player-1", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for 429 response")
	}
	if !models.IsRetriable(err) {
		t.Error("Expected 429 to be retriable")
	}
}

func TestOneSignalAdapter_RequiresCredentials(t *testing.T) {
	t.Setenv("ONESIGNAL_APP_ID", "")
	t.Setenv("ONESIGNAL_API_KEY", "")
	if _, err := NewOneSignalAdapter(WithOneSignalAppID("app-only")); err == nil {
		t.Error("Expected NewOneSignalAdapter without API key to fail")
	}
}

func newTestEmailAdapter(t *testing.T, send SendMailFunc) *EmailAdapter {
	t.Helper()
	a, err := NewEmailAdapter(
		WithSMTPHost("smtp.example.com"),
		WithSMTPPort(587),
		WithSMTPCredentials("mailer", "secret"),
		WithSMTPFrom("noreply@example.com"),
		WithSendMailFunc(send),
	)
	if err != nil {
		t.Fatalf("NewEmailAdapter failed: %v", err)
	}
	return a
}

func TestEmailAdapter_SendSuccess(t *testing.T) {
	var gotTo []string
	var gotMsg []byte
	a := newTestEmailAdapter(t, func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		if addr != "smtp.example.com:587" {
			t.Errorf("Unexpected SMTP address %q", addr)
		}
		gotTo = to
		gotMsg = msg
		return nil
	})

	res, err := a.Send(context.Background(), "user@example.com", "تم قبول المنشأة", "تمت الموافقة", nil)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if !res.Success {
		t.Errorf("Expected success, got %+v", res)
	}
	if len(gotTo) != 1 || gotTo[0] != "user@example.com" {
		t.Errorf("Expected single recipient, got %v", gotTo)
	}
	text := string(gotMsg)
	if !strings.Contains(text, "Subject: =?utf-8?") {
		t.Errorf("Expected RFC 2047 encoded subject, got:\n%s", text)
	}
	if !strings.Contains(text, "charset=utf-8") {
		t.Error("Expected UTF-8 content type")
	}
}

func TestEmailAdapter_PermanentRejectionNonRetriable(t *testing.T) {
	a := newTestEmailAdapter(t, func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		return &textproto.Error{Code: 550, Msg: "mailbox unavailable"}
	})

	_, err := a.Send(context.Background(), "gone@example.com", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for 550 rejection")
	}
	if models.IsRetriable(err) {
		t.Error("Expected SMTP 550 to be non-retriable")
	}
}

func TestEmailAdapter_TransientFailureRetriable(t *testing.T) {
	a := newTestEmailAdapter(t, func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		return fmt.Errorf("dial tcp: connection refused")
	})

	_, err := a.Send(context.Background(), "user@example.com", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for connection failure")
	}
	if !models.IsRetriable(err) {
		t.Error("Expected connection failure to be retriable")
	}
}

func TestEmailAdapter_SendBoundedByContextDeadline(t *testing.T) {
	a := newTestEmailAdapter(t, func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		time.Sleep(2 * time.Second)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := a.Send(ctx, "user@example.com", "t", "b", nil)
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected error when the deadline expires mid-send")
	}
	if !models.IsRetriable(err) {
		t.Error("Expected deadline expiry to be retriable")
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("Send blocked %v past a 50ms context deadline", elapsed)
	}
}

func TestEmailAdapter_EmptyRecipientNonRetriable(t *testing.T) {
	a := newTestEmailAdapter(t, func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		t.Error("No send expected for empty recipient")
		return nil
	})

	_, err := a.Send(context.Background(), "", "t", "b", nil)
	if err == nil {
		t.Fatal("Expected error for empty recipient")
	}
	if models.IsRetriable(err) {
		t.Error("Expected empty recipient to be non-retriable")
	}
}

func TestRegistry_ResolveAndUnknown(t *testing.T) {
	fcm := newFCMTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {})
	reg := NewRegistry(fcm, nil)

	a, err := reg.Resolve(models.ProviderFCM)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if a.Name() != models.ProviderFCM {
		t.Errorf("Expected fcm adapter, got %q", a.Name())
	}

	if _, err := reg.Resolve(models.ProviderOneSignal); err != models.ErrUnknownProvider {
		t.Errorf("Expected ErrUnknownProvider, got %v", err)
	}
	if names := reg.Names(); len(names) != 1 {
		t.Errorf("Expected 1 registered provider, got %v", names)
	}
}
