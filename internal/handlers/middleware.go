package handlers

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticket-resale/internal/services"
	"ticket-resale/security"
)

const (
	sessionKey          = "resale_session"
	requestIDKey        = "resale_request_id"
	requestIDHeaderName = "X-Request-ID"
)

type TokenVerifier interface {
	Verify(raw string) (*services.Session, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// verified session on the event.
func RequireAuth(tokens TokenVerifier) func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		if err := authenticate(e, tokens); err != nil {
			return err
		}
		return e.Next()
	}
}

func authenticate(e *core.RequestEvent, tokens TokenVerifier) error {
	raw, ok := bearerToken(e.Request.Header.Get("Authorization"))
	if !ok {
		return apis.NewUnauthorizedError("Access denied. No token provided.", nil)
	}

	session, err := tokens.Verify(raw)
	if err != nil {
		return apiError(e, err)
	}

	e.Set(sessionKey, session)
	return nil
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func sessionFrom(e *core.RequestEvent) (*services.Session, error) {
	session, _ := e.Get(sessionKey).(*services.Session)
	if session == nil || session.UserID == "" {
		return nil, apis.NewUnauthorizedError("Access denied. No token provided.", nil)
	}
	return session, nil
}

// RequestID echoes or assigns X-Request-ID and logs the finished request.
func RequestID(e *core.RequestEvent) error {
	startedAt := time.Now()

	requestID := normalizeRequestID(e.Request.Header.Get(requestIDHeaderName))
	if requestID == "" {
		requestID = uuid.NewString()
	}

	e.Set(requestIDKey, requestID)
	e.Response.Header().Set(requestIDHeaderName, requestID)

	err := e.Next()

	slog.Info("Request",
		"request_id", requestID,
		"method", e.Request.Method,
		"path", e.Request.URL.Path,
		"status", e.Status(),
		"latency_ms", float64(time.Since(startedAt).Microseconds())/1000.0,
		"client_ip", security.ClientIP(e.Request),
		"error", err,
	)

	return err
}

func RequestIDFrom(e *core.RequestEvent) string {
	id, _ := e.Get(requestIDKey).(string)
	return id
}

func normalizeRequestID(raw string) string {
	candidate := strings.TrimSpace(raw)
	if len(candidate) > 128 {
		candidate = candidate[:128]
	}
	return candidate
}
