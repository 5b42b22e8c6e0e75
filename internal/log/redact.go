package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"x-auth-token":        true,
	"password":            true,
	"secret":              true,
	"token":               true,
	"api_key":             true,
	"apikey":              true,
	"access_token":        true,
	"session":             true,
	"session_id":          true,
	"sessionid":           true,
}

// sensitiveQueryParams are URL query parameters masked inside URL values.
// Signed download links put their credentials here.
var sensitiveQueryParams = map[string]bool{
	"token":        true,
	"access_token": true,
	"auth":         true,
	"key":          true,
	"api_key":      true,
	"apikey":       true,
	"sig":          true,
	"signature":    true,
	"session":      true,
	"sessionid":    true,
	"sid":          true,
	"password":     true,

	// S3 presigned URLs
	"x-amz-signature":  true,
	"x-amz-credential": true,
}

// sensitivePatterns match credential values regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
}

// RedactingHandler wraps an slog.Handler and masks credentials in attributes
// before passing records on.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler. A nil handler wraps slog.Default().Handler().
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &RedactingHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle redacts the record's attributes and passes it on.
func (h *RedactingHandler) Handle(ctx context.Context, r slog.Record) error {
	redacted := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return h.handler.Handle(ctx, redacted)
}

// WithAttrs returns a handler with the redacted attributes added.
func (h *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		redacted[i] = redactAttr(a)
	}
	return &RedactingHandler{handler: h.handler.WithAttrs(redacted)}
}

// WithGroup returns a handler with the given group name.
func (h *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: h.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		redacted := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			redacted[i] = redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
	}

	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, MaskValue)
	}

	if a.Value.Kind() != slog.KindString {
		return a
	}

	s := a.Value.String()
	for _, p := range sensitivePatterns {
		if p.MatchString(s) {
			return slog.String(a.Key, MaskValue)
		}
	}
	if strings.Contains(s, "?") && (strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")) {
		return slog.String(a.Key, RedactURL(s))
	}

	return a
}

// RedactURL masks the values of sensitive query parameters and any userinfo
// password in rawURL. Unparseable input is returned unchanged.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	changed := false
	if u.User != nil {
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), MaskValue)
			changed = true
		}
	}

	if u.RawQuery != "" {
		q := u.Query()
		for k := range q {
			if sensitiveQueryParams[strings.ToLower(k)] {
				q[k] = []string{MaskValue}
				changed = true
			}
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return rawURL
	}
	return u.String()
}

// NewLogger returns a logger writing to w through a RedactingHandler.
// verbose lowers the level from Info to Debug; jsonFormat selects the JSON
// handler instead of the text handler.
func NewLogger(w io.Writer, verbose, jsonFormat bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if jsonFormat {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewRedactingHandler(handler))
}
