package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHS256RoundTrip(t *testing.T) {
	now := time.Now()
	claims := Claims{
		Sub:  "staff-1",
		Name: "Giulia",
		Role: "staff",
		Iat:  now.Unix(),
		Exp:  now.Add(time.Hour).Unix(),
	}
	token, err := SignHS256(claims, "test-secret")
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	parsed, err := ParseAndVerifyHS256(token, "test-secret", now)
	if err != nil {
		t.Fatalf("ParseAndVerifyHS256 failed: %v", err)
	}
	if parsed.Sub != claims.Sub || parsed.Role != claims.Role || parsed.Name != claims.Name {
		t.Fatalf("claims mismatch: got %+v", parsed)
	}

	if _, err := ParseAndVerifyHS256(token, "wrong-secret", now); err == nil {
		t.Fatal("expected verification error with wrong secret")
	}
	if _, err := ParseAndVerifyHS256(token, "test-secret", now.Add(2*time.Hour)); err == nil {
		t.Fatal("expected expiry error")
	}
	if _, err := ParseAndVerifyHS256(token, "", now); err == nil {
		t.Fatal("expected error with empty secret")
	}
}

func TestRejectsTamperedPayload(t *testing.T) {
	token, _ := SignHS256(Claims{Sub: "staff-1", Role: "staff"}, "s")
	parts := strings.Split(token, ".")
	forged, _ := SignHS256(Claims{Sub: "staff-1", Role: "admin"}, "other")
	parts[1] = strings.Split(forged, ".")[1]
	if _, err := ParseAndVerifyHS256(strings.Join(parts, "."), "s", time.Now()); err == nil {
		t.Fatal("expected tampered token to be rejected")
	}
}

func TestRequireRole(t *testing.T) {
	var gotSub string
	h := RequireRole("secret", "staff", "admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := ClaimsFromContext(r.Context())
		gotSub = c.Sub
		w.WriteHeader(http.StatusOK)
	}))

	call := func(authz string) int {
		req := httptest.NewRequest(http.MethodGet, "http://example.com", nil)
		if authz != "" {
			req.Header.Set("Authorization", authz)
		}
		rw := httptest.NewRecorder()
		h.ServeHTTP(rw, req)
		return rw.Code
	}

	if code := call(""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", code)
	}
	if code := call("Bearer garbage"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", code)
	}

	guest, _ := SignHS256(Claims{Sub: "u-1", Role: "guest", Exp: time.Now().Add(time.Hour).Unix()}, "secret")
	if code := call("Bearer " + guest); code != http.StatusForbidden {
		t.Fatalf("expected 403 for guest role, got %d", code)
	}

	staff, _ := SignHS256(Claims{Sub: "staff-7", Role: "staff", Exp: time.Now().Add(time.Hour).Unix()}, "secret")
	if code := call("Bearer " + staff); code != http.StatusOK {
		t.Fatalf("expected 200 for staff, got %d", code)
	}
	if gotSub != "staff-7" {
		t.Fatalf("claims not propagated, got %q", gotSub)
	}
}
