package middleware

import (
	"context"
	"net/http"
	"slices"

	"github.com/upb/realm-guard/internal/shared"
	"github.com/upb/realm-guard/keycloak"
	"github.com/upb/realm-guard/models"
	"github.com/upb/realm-guard/utils"
	"go.uber.org/zap"
)

// Authorizer decides whether a request may proceed
type Authorizer interface {
	Authorize(ctx context.Context, header string, required []string) keycloak.Decision
}

// AuthEventSink stores authorization decisions
type AuthEventSink interface {
	Insert(ctx context.Context, event *models.AuthEvent) error
}

// AuthMiddleware wraps handlers with bearer token authentication and role checks
type AuthMiddleware struct {
	guard  Authorizer
	events AuthEventSink
	logger *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware. events may be nil.
func NewAuthMiddleware(guard Authorizer, events AuthEventSink, logger *zap.Logger) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthMiddleware{
		guard:  guard,
		events: events,
		logger: logger,
	}
}

// RequireAuth admits any caller holding a valid token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return m.Protect()(next)
}

// RequireRole admits callers holding at least one of roles
func (m *AuthMiddleware) RequireRole(roles ...string) func(http.Handler) http.Handler {
	return m.Protect(roles...)
}

// Protect returns middleware guarding a route with the given role
// requirement. An empty requirement only checks the token.
func (m *AuthMiddleware) Protect(roles ...string) func(http.Handler) http.Handler {
	required := slices.Clone(roles)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, r := m.before(r, required)
			if !decision.Allowed {
				_ = utils.WriteError(w, decision.Status, decision.Message)
				return
			}

			rw := m.after(w, decision)
			next.ServeHTTP(rw, r)
			rw.finish()
		})
	}
}

// before runs the guard and, on success, attaches the identity to the request.
func (m *AuthMiddleware) before(r *http.Request, required []string) (keycloak.Decision, *http.Request) {
	ctx := r.Context()
	decision := m.guard.Authorize(ctx, r.Header.Get("Authorization"), required)
	m.record(ctx, r, decision)

	if !decision.Allowed {
		m.logger.Info("request denied",
			zap.String("request_id", shared.RequestID(ctx)),
			zap.String("path", r.URL.Path),
			zap.String("reason", string(decision.Reason)),
			zap.Int("status", decision.Status),
		)
		return decision, r
	}

	return decision, r.WithContext(WithAuthContext(ctx, decision.Context))
}

// after wraps the writer so the refresh advice lands on the response headers
// regardless of how the handler writes.
func (m *AuthMiddleware) after(w http.ResponseWriter, decision keycloak.Decision) *refreshAdvisoryWriter {
	return &refreshAdvisoryWriter{ResponseWriter: w, advise: decision.RefreshAdvised}
}

func (m *AuthMiddleware) record(ctx context.Context, r *http.Request, decision keycloak.Decision) {
	if m.events == nil {
		return
	}

	event := models.NewAuthEvent(models.AuthOutcome(decision.Outcome()), decision.Status)
	event.RequestID = shared.RequestID(ctx)
	event.Reason = string(decision.Reason)
	event.Method = r.Method
	event.Path = r.URL.Path
	event.RemoteAddr = r.RemoteAddr
	event.UserAgent = r.UserAgent()
	if decision.Context != nil {
		event.Subject = decision.Context.UserID
	}

	if err := m.events.Insert(ctx, event); err != nil {
		m.logger.Warn("failed to record auth event",
			zap.String("request_id", event.RequestID),
			zap.Error(err),
		)
	}
}

type refreshAdvisoryWriter struct {
	http.ResponseWriter
	advise      bool
	wroteHeader bool
}

func (w *refreshAdvisoryWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		w.stamp()
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *refreshAdvisoryWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

func (w *refreshAdvisoryWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *refreshAdvisoryWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// finish covers handlers that return without writing.
func (w *refreshAdvisoryWriter) finish() {
	if !w.wroteHeader {
		w.stamp()
	}
}

func (w *refreshAdvisoryWriter) stamp() {
	if w.advise {
		w.Header().Set(keycloak.RefreshHeader, "true")
	}
}
