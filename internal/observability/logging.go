// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Logger wraps slog.Logger to provide specialized logging methods.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the default logger instance for the application.
var GlobalLogger *Logger

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	GlobalLogger = &Logger{Logger: slog.New(ctxHandler{handler})}
}

// InitLogging reconfigures the global logger. Level is one of debug, info,
// warn, error; format is json or text.
func InitLogging(level, format string) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	GlobalLogger = &Logger{Logger: slog.New(ctxHandler{handler})}
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LogContextKey is a type for context keys used by the logging package.
type LogContextKey string

// Context keys for logging
const (
	RequestIDKey LogContextKey = "request_id"
	SessionIDKey LogContextKey = "session_id"
	UserIDKey    LogContextKey = "user_id"
)

// WithRequestID returns a new context carrying the HTTP request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

// WithSessionID returns a new context carrying the socket session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, SessionIDKey, id)
}

// WithUserID returns a new context carrying the authenticated user id.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

// ExtractRequestID retrieves the request id from the context.
func ExtractRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// ExtractSessionID retrieves the session id from the context.
func ExtractSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// ExtractUserID retrieves the user id from the context.
func ExtractUserID(ctx context.Context) string {
	if id, ok := ctx.Value(UserIDKey).(string); ok {
		return id
	}
	return ""
}

// ctxHandler decorates every record with the ids carried in the context, so
// call sites never thread them by hand.
type ctxHandler struct {
	slog.Handler
}

func (h ctxHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := ExtractRequestID(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if id := ExtractSessionID(ctx); id != "" {
		r.AddAttrs(slog.String("session_id", id))
	}
	if id := ExtractUserID(ctx); id != "" {
		r.AddAttrs(slog.String("user_id", id))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		r.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
	}
	return h.Handler.Handle(ctx, r)
}

func (h ctxHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ctxHandler{h.Handler.WithAttrs(attrs)}
}

func (h ctxHandler) WithGroup(name string) slog.Handler {
	return ctxHandler{h.Handler.WithGroup(name)}
}

// LoggingConfig defines which types of automated logging are enabled.
type LoggingConfig struct {
	EnableSocketLogging   bool
	EnablePresenceLogging bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableSocketLogging:   true,
	EnablePresenceLogging: true,
}

// SocketLogger provides structured logging for socket session events.
type SocketLogger struct {
	hubName string
	logger  *Logger
}

// NewSocketLogger creates a new SocketLogger for the given hub.
func NewSocketLogger(hubName string) *SocketLogger {
	return &SocketLogger{
		hubName: hubName,
		logger:  GlobalLogger,
	}
}

// LogConnect logs a new socket session.
func (l *SocketLogger) LogConnect(ctx context.Context, sessionID string) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.InfoContext(ctx, "session connected",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
	)
}

// LogDisconnect logs a closed socket session.
func (l *SocketLogger) LogDisconnect(ctx context.Context, sessionID, reason string) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.InfoContext(ctx, "session disconnected",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("reason", reason),
	)
}

// LogBind logs a session becoming authenticated as a user.
func (l *SocketLogger) LogBind(ctx context.Context, sessionID, userID string) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.InfoContext(ctx, "session bound",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("bound_user_id", userID),
	)
}

// LogUnbind logs a session losing its user binding.
func (l *SocketLogger) LogUnbind(ctx context.Context, sessionID, userID, reason string) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.InfoContext(ctx, "session unbound",
		slog.String("hub", l.hubName),
		slog.String("session_id", sessionID),
		slog.String("bound_user_id", userID),
		slog.String("reason", reason),
	)
}

// LogEvent logs one handled socket event and its outcome.
func (l *SocketLogger) LogEvent(ctx context.Context, event, outcome string) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.InfoContext(ctx, "socket event",
		slog.String("hub", l.hubName),
		slog.String("event", event),
		slog.String("outcome", outcome),
	)
}

// LogError logs a failed socket event.
func (l *SocketLogger) LogError(ctx context.Context, event string, err error) {
	if !Config.EnableSocketLogging {
		return
	}
	l.logger.ErrorContext(ctx, "socket error",
		slog.String("hub", l.hubName),
		slog.String("event", event),
		slog.String("error", err.Error()),
	)
}

// LogLifecycle logs a hub lifecycle event.
func (l *SocketLogger) LogLifecycle(ctx context.Context, event string, fields map[string]interface{}) {
	if !Config.EnableSocketLogging {
		return
	}
	attrs := []any{
		slog.String("hub", l.hubName),
		slog.String("event", event),
	}
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	l.logger.InfoContext(ctx, "hub lifecycle", attrs...)
}
