package sms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWebhookSender(t *testing.T) {
	var got map[string]string
	var authz string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, "tok")
	if err := s.Send(context.Background(), "+15550100", "table confirmed"); err != nil {
		t.Fatalf("send: %v", err)
	}
	if got["to"] != "+15550100" || got["body"] != "table confirmed" || authz != "Bearer tok" {
		t.Fatalf("unexpected request: %v %q", got, authz)
	}
}

func TestWebhookSenderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if err := NewWebhookSender(srv.URL, "").Send(context.Background(), "+1", "x"); err == nil {
		t.Fatal("expected error on 502")
	}
	if err := NewWebhookSender("", "").Send(context.Background(), "+1", "x"); err == nil {
		t.Fatal("expected error without url")
	}
}
