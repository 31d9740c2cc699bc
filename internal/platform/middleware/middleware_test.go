// Copyright (c) 2026 Tingtong. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polutek/tingtong/internal/platform/constants"
	"github.com/polutek/tingtong/internal/platform/ctxutil"
	"github.com/polutek/tingtong/internal/platform/middleware"
	"github.com/polutek/tingtong/internal/platform/sec"
)

type stubVerifier struct {
	claims *sec.AuthClaims
	err    error
	seen   string
}

func (s *stubVerifier) VerifyToken(token string) (*sec.AuthClaims, error) {
	s.seen = token
	return s.claims, s.err
}

type stubConfig struct {
	dev    bool
	suffix string
}

func (c stubConfig) IsDevelopment() bool         { return c.dev }
func (c stubConfig) AllowedOriginSuffix() string { return c.suffix }

func okHandler(captured *context.Context) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if captured != nil {
			*captured = request.Context()
		}
		writer.WriteHeader(http.StatusOK)
	})
}

/*
TestRequestID verifies that an incoming id is echoed and a missing one is generated.
*/
func TestRequestID(t *testing.T) {
	var ctx context.Context
	handler := middleware.RequestID()(okHandler(&ctx))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "abc")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, "abc", recorder.Header().Get(constants.HeaderXRequestID))
	assert.Equal(t, "abc", ctxutil.GetRequestID(ctx))

	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, recorder.Header().Get(constants.HeaderXRequestID))
}

/*
TestAuthenticate covers anonymous, valid, malformed and rejected credentials.
*/
func TestAuthenticate(t *testing.T) {
	claims := &sec.AuthClaims{UserID: "user-1", Role: string(sec.RoleMember)}

	t.Run("anonymous passes through", func(t *testing.T) {
		var ctx context.Context
		handler := middleware.Authenticate(&stubVerifier{})(okHandler(&ctx))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Nil(t, middleware.GetUser(ctx))
	})

	t.Run("valid bearer injects claims", func(t *testing.T) {
		var ctx context.Context
		verifier := &stubVerifier{claims: claims}
		handler := middleware.Authenticate(verifier)(okHandler(&ctx))

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer tok")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "tok", verifier.seen)
		assert.Equal(t, "user-1", ctxutil.GetUserID(ctx))
	})

	t.Run("malformed header", func(t *testing.T) {
		handler := middleware.Authenticate(&stubVerifier{claims: claims})(okHandler(nil))

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Token tok")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("rejected token", func(t *testing.T) {
		handler := middleware.Authenticate(&stubVerifier{err: errors.New("expired")})(okHandler(nil))

		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Authorization", "Bearer tok")
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("query token only on upgrade", func(t *testing.T) {
		verifier := &stubVerifier{claims: claims}
		var ctx context.Context
		handler := middleware.Authenticate(verifier)(okHandler(&ctx))

		request := httptest.NewRequest(http.MethodGet, "/?access_token=qtok", nil)
		handler.ServeHTTP(httptest.NewRecorder(), request)
		assert.Nil(t, middleware.GetUser(ctx))

		request = httptest.NewRequest(http.MethodGet, "/?access_token=qtok", nil)
		request.Header.Set("Upgrade", "websocket")
		handler.ServeHTTP(httptest.NewRecorder(), request)
		assert.Equal(t, "qtok", verifier.seen)
		require.NotNil(t, middleware.GetUser(ctx))
	})
}

/*
TestCORS verifies suffix matching in production and preflight handling.
*/
func TestCORS(t *testing.T) {
	handler := middleware.CORS(stubConfig{suffix: "tingtong.app"})(okHandler(nil))

	cases := map[string]bool{
		"https://tingtong.app":          true,
		"https://www.tingtong.app":      true,
		"https://eviltingtong.app":      false,
		"https://tingtong.app.evil.com": false,
		"http://localhost:3000":         false,
	}

	for origin, allowed := range cases {
		request := httptest.NewRequest(http.MethodGet, "/", nil)
		request.Header.Set("Origin", origin)
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)

		if allowed {
			assert.Equal(t, origin, recorder.Header().Get("Access-Control-Allow-Origin"), origin)
		} else {
			assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}

	request := httptest.NewRequest(http.MethodOptions, "/", nil)
	request.Header.Set("Origin", "https://tingtong.app")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
}

/*
TestPanicRecovery verifies a panicking handler yields a 500 JSON body.
*/
func TestPanicRecovery(t *testing.T) {
	handler := middleware.PanicRecovery(slog.New(slog.DiscardHandler))(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }),
	)

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "INTERNAL_ERROR")
}

/*
TestRealIP verifies header precedence.
*/
func TestRealIP(t *testing.T) {
	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", middleware.RealIP(request))

	request.Header.Set("X-Forwarded-For", "1.1.1.1, 2.2.2.2")
	assert.Equal(t, "1.1.1.1", middleware.RealIP(request))

	request.Header.Set("X-Real-IP", "3.3.3.3")
	assert.Equal(t, "3.3.3.3", middleware.RealIP(request))
}
