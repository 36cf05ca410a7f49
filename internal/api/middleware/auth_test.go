package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/imagebatch/internal/api/shared"
)

const testSecret = "test-secret-that-is-at-least-32-characters-long"

func signToken(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.RegisteredClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	t.Parallel()

	valid := jwt.RegisteredClaims{
		Subject:   "batch-client",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   "batch-client",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	noExpiry := jwt.RegisteredClaims{Subject: "batch-client"}
	noSubject := jwt.RegisteredClaims{ExpiresAt: valid.ExpiresAt}

	tests := []struct {
		name            string
		authHeader      string
		expectedStatus  int
		expectedMessage string
	}{
		{
			name:           "valid token",
			authHeader:     "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, valid),
			expectedStatus: http.StatusOK,
		},
		{
			name:            "missing auth header",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Authorization header required",
		},
		{
			name:            "invalid auth format",
			authHeader:      "InvalidFormat",
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid authorization format",
		},
		{
			name:            "expired token",
			authHeader:      "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, expired),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Token expired",
		},
		{
			name:            "wrong secret",
			authHeader:      "Bearer " + signToken(t, "another-secret-also-at-least-32-chars!!", jwt.SigningMethodHS256, valid),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
		{
			name:            "wrong algorithm",
			authHeader:      "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS512, valid),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
		{
			name:            "missing expiry",
			authHeader:      "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noExpiry),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
		{
			name:            "missing subject",
			authHeader:      "Bearer " + signToken(t, testSecret, jwt.SigningMethodHS256, noSubject),
			expectedStatus:  http.StatusUnauthorized,
			expectedMessage: "Invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = shared.GetSubject(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/jobs/x", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			NewAuthMiddleware(testSecret).Authenticate(next).ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Equal(t, "batch-client", subject)
			} else {
				assert.Contains(t, rr.Body.String(), tt.expectedMessage)
			}
		})
	}
}

func TestTrace(t *testing.T) {
	t.Parallel()

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
	})

	rr := httptest.NewRecorder()
	Trace(nil)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, rr.Header().Get("X-Trace-ID"))
}
