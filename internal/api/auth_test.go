package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sanghalabs/kindred/internal/auth"
	"github.com/sanghalabs/kindred/internal/middleware"
)

func TestRequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret-for-handlers")

	accessToken, err := jwtService.GenerateAccessToken("member-42")
	if err != nil {
		t.Fatalf("failed to generate access token: %v", err)
	}
	refreshToken, err := jwtService.GenerateRefreshToken("member-42")
	if err != nil {
		t.Fatalf("failed to generate refresh token: %v", err)
	}

	var gotMemberID string
	handler := RequireAuth(jwtService, func(w http.ResponseWriter, r *http.Request) {
		gotMemberID = middleware.GetMemberID(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name         string
		header       string
		wantStatus   int
		wantMemberID string
	}{
		{
			name:         "valid_access_token",
			header:       "Bearer " + accessToken,
			wantStatus:   http.StatusOK,
			wantMemberID: "member-42",
		},
		{
			name:       "missing_header",
			header:     "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not_bearer",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "empty_token",
			header:     "Bearer ",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "garbage_token",
			header:     "Bearer not.a.jwt",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "refresh_token_rejected",
			header:     "Bearer " + refreshToken,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMemberID = ""

			req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if gotMemberID != tt.wantMemberID {
				t.Errorf("expected member ID %q on context, got %q", tt.wantMemberID, gotMemberID)
			}

			if tt.wantStatus == http.StatusUnauthorized {
				var resp ErrorResponse
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("failed to parse error response: %v", err)
				}
				if resp.Error.Code != ErrCodeAuthFailed {
					t.Errorf("expected error code %s, got %s", ErrCodeAuthFailed, resp.Error.Code)
				}
			}
		})
	}
}

func TestRequireAuth_SecretRotation(t *testing.T) {
	oldService := auth.NewJWTService("old-secret")
	token, err := oldService.GenerateAccessToken("member-7")
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	rotated := auth.NewJWTServiceWithRotation("new-secret", "old-secret")
	handler := RequireAuth(rotated, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/matches/run", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected token signed with previous secret to validate, got %d", w.Code)
	}
}
