package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/eixo/internal/auth"
)

func protected(t *testing.T, tokens *auth.Tokens, reached *auth.AuthContext) http.Handler {
	t.Helper()
	return RequireBearer(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("auth context missing")
		}
		*reached = ac
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireBearerMissingToken(t *testing.T) {
	var ac auth.AuthContext
	handler := protected(t, auth.NewTokens("secret", time.Hour), &ac)

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ac.UserID != 0 {
		t.Error("handler should not be reached")
	}
}

func TestRequireBearerInvalidToken(t *testing.T) {
	var ac auth.AuthContext
	handler := protected(t, auth.NewTokens("secret", time.Hour), &ac)

	other, _, err := auth.NewTokens("other-secret", time.Hour).Issue(1, "Ana")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, header := range []string{"Bearer garbage", "Bearer " + other, "Basic abc"} {
		req := httptest.NewRequest("GET", "/api/tasks", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRequireBearerValidHeader(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	var ac auth.AuthContext
	handler := protected(t, tokens, &ac)

	token, _, err := tokens.Issue(7, "Ana")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if ac.UserID != 7 || ac.Name != "Ana" {
		t.Errorf("auth context = %+v", ac)
	}
}

func TestRequireBearerQueryToken(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	var ac auth.AuthContext
	handler := protected(t, tokens, &ac)

	token, _, err := tokens.Issue(3, "Bruno")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest("GET", "/ws?token="+token, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if ac.UserID != 3 {
		t.Errorf("UserID = %d, want 3", ac.UserID)
	}
}

func TestOptionalBearer(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	token, _, err := tokens.Issue(5, "Carla")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var got int64 = -1
	handler := OptionalBearer(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.UserID(r.Context())
	}))

	tests := []struct {
		header string
		want   int64
	}{
		{"", 0},
		{"Bearer garbage", 0},
		{"Bearer " + token, 5},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("POST", "/api/users", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		handler.ServeHTTP(httptest.NewRecorder(), req)
		if got != tt.want {
			t.Errorf("%q: UserID = %d, want %d", tt.header, got, tt.want)
		}
	}
}
