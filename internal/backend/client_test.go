package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestGetSendsBearerTokenAndQuery(t *testing.T) {
	t.Parallel()

	var gotAuth, gotStatus string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotStatus = r.URL.Query().Get("status")
		_, _ = io.WriteString(w, `[{"id":1}]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret", time.Second)
	raw, err := c.Get(context.Background(), "/contracts", url.Values{"status": {"Pending"}})
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer token, got %q", gotAuth)
	}
	if gotStatus != "Pending" {
		t.Errorf("expected status query Pending, got %q", gotStatus)
	}
	if string(raw) != `[{"id":1}]` {
		t.Errorf("unexpected body %s", raw)
	}
}

func TestErrorMessageVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"json error field", "application/json", `{"error":"lease not found"}`, "lease not found"},
		{"json message field", "application/json", `{"message":"denied"}`, "denied"},
		{"plain text", "text/plain", "gateway exploded\n", "gateway exploded"},
		{"empty body", "text/plain", "", http.StatusText(http.StatusBadGateway)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(http.StatusBadGateway)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, "", time.Second).Get(context.Background(), "/x", nil)
			var be *Error
			if !errors.As(err, &be) {
				t.Fatalf("expected *Error, got %v", err)
			}
			if be.StatusCode != http.StatusBadGateway {
				t.Errorf("expected 502, got %d", be.StatusCode)
			}
			if be.Message != tt.want {
				t.Errorf("expected message %q, got %q", tt.want, be.Message)
			}
			if !IsStatus(err, http.StatusBadGateway) {
				t.Error("IsStatus should match 502")
			}
		})
	}
}

func TestPostEmptyAcknowledgement(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	raw, err := NewClient(srv.URL, "", time.Second).Post(context.Background(), "/messages/read/5", nil)
	if err != nil {
		t.Fatalf("Post failed: %v", err)
	}
	if raw != nil {
		t.Errorf("expected nil body for empty ack, got %s", raw)
	}
}

func TestSendMessageBody(t *testing.T) {
	t.Parallel()

	var got SendMessageRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = io.WriteString(w, `{"id":99,"fromUserId":1,"toUserId":5,"content":"Hi"}`)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", time.Second).SendMessage(context.Background(), "5", "Hi"); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if got.ToUserID != "5" || got.Content != "Hi" {
		t.Errorf("unexpected request body %+v", got)
	}
}

func TestGetRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>login</html>")
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, "", time.Second).Get(context.Background(), "/x", nil); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}
