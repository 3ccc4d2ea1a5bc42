// Package middleware validates JSON request bodies against compiled
// validators at net/http boundaries.
//
// A request whose Content-Type is not JSON is answered with 415, a body
// that is not well-formed JSON or repeats an object key with 400, and a
// body that fails the schema with 422. Every error response carries the
// issues in the standard result shape: {"issues": [{"path": [...], ...}]}.
package middleware

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elnormous/contenttype"
	json "github.com/goccy/go-json"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/i18n"
	"github.com/reoring/typebridge/internal/jsondup"
)

var jsonMediaType = contenttype.NewMediaType("application/json")

// DefaultMaxBytes bounds request bodies unless WithMaxBytes says otherwise.
const DefaultMaxBytes = 1 << 20

type config struct {
	logger          *slog.Logger
	maxBytes        int64
	allowDuplicates bool
}

// Option configures the middleware.
type Option func(*config)

// WithLogger sets the logger for request outcomes. If not provided, logs
// are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithMaxBytes bounds the request body; larger bodies get 413.
func WithMaxBytes(n int64) Option {
	return func(c *config) { c.maxBytes = n }
}

// WithDuplicateKeys accepts bodies that repeat an object key; the last
// occurrence wins.
func WithDuplicateKeys(allow bool) Option {
	return func(c *config) { c.allowDuplicates = allow }
}

func newConfig(opts []Option) *config {
	c := &config{logger: slog.New(slog.DiscardHandler), maxBytes: DefaultMaxBytes}
	for _, o := range opts {
		o(c)
	}
	return c
}

type ctxKeyValue struct{}

// ContextWithValue attaches a parsed body to ctx.
func ContextWithValue(ctx context.Context, v any) context.Context {
	return context.WithValue(ctx, ctxKeyValue{}, parsed{v})
}

// ValueFromContext returns the body parsed by ValidateJSON.
func ValueFromContext(ctx context.Context) (any, bool) {
	v, ok := ctx.Value(ctxKeyValue{}).(parsed)
	return v.v, ok
}

// parsed boxes the value so that a JSON null body is still found.
type parsed struct{ v any }

// ValidateJSON returns middleware that parses the request body with v
// (defaults and transforms applied) and stores the result for
// ValueFromContext. The body is restored for the next handler.
func ValidateJSON(v *compile.Validator, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			val, body, status, iss := decode(w, r, v, cfg)
			if iss != nil {
				cfg.logger.WarnContext(r.Context(), "request.invalid",
					slog.String("path", r.URL.Path),
					slog.Int("status", status),
					slog.Int("issues", len(iss)),
					slog.String("first", iss[0].Code))
				WriteIssues(w, status, iss)
				return
			}
			cfg.logger.DebugContext(r.Context(), "request.valid", slog.String("path", r.URL.Path), slog.Duration("dur", time.Since(start)))
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r.WithContext(ContextWithValue(r.Context(), val)))
		})
	}
}

// DecodeRequest reads and parses the body of r the way ValidateJSON does.
// On failure it returns the response status and the issues to report.
func DecodeRequest(w http.ResponseWriter, r *http.Request, v *compile.Validator, opts ...Option) (val any, status int, iss tb.Issues) {
	val, _, status, iss = decode(w, r, v, newConfig(opts))
	return val, status, iss
}

func decode(w http.ResponseWriter, r *http.Request, v *compile.Validator, cfg *config) (any, []byte, int, tb.Issues) {
	ctype, err := contenttype.GetMediaType(r)
	if err != nil || !ctype.Matches(jsonMediaType) {
		return nil, nil, http.StatusUnsupportedMediaType, tb.Issues{tb.Path{}.Issue(tb.CodeInvalidType, "content-type must be application/json", "expected", jsonMediaType.String())}
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, cfg.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, nil, http.StatusRequestEntityTooLarge, tb.Issues{tb.Path{}.Issue(tb.CodeTooBig, i18n.T(tb.CodeTooBig, nil), "limit", tooLarge.Limit)}
		}
		return nil, nil, http.StatusBadRequest, parseError(err)
	}
	if !cfg.allowDuplicates {
		dups, err := jsondup.Find(body, 0)
		if err != nil {
			return nil, nil, http.StatusBadRequest, parseError(err)
		}
		if dups != nil {
			return nil, nil, http.StatusBadRequest, dups
		}
	}
	val, err := v.ParseJSON(body)
	if err != nil {
		iss, _ := tb.AsIssues(err)
		if len(iss) > 0 && iss[0].Code == tb.CodeParseError {
			return nil, nil, http.StatusBadRequest, iss
		}
		if len(iss) == 0 {
			iss = parseError(err)
		}
		return nil, nil, http.StatusUnprocessableEntity, iss
	}
	return val, body, http.StatusOK, nil
}

func parseError(err error) tb.Issues {
	return tb.Issues{{Path: tb.Path{}, Code: tb.CodeParseError, Message: i18n.T(tb.CodeParseError, nil), Cause: err}}
}

// IssueJSON is the wire form of one issue.
type IssueJSON struct {
	Path    []any          `json:"path"`
	Pointer string         `json:"pointer"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Params  map[string]any `json:"params,omitempty"`
}

// Payload is the body of an error response.
type Payload struct {
	Issues []IssueJSON `json:"issues"`
}

// ErrorPayload shapes issues for JSON responses.
func ErrorPayload(iss tb.Issues) Payload {
	out := Payload{Issues: make([]IssueJSON, len(iss))}
	for i, it := range iss {
		path := []any(it.Path)
		if path == nil {
			path = []any{}
		}
		out.Issues[i] = IssueJSON{Path: path, Pointer: it.Pointer(), Code: it.Code, Message: it.Message, Params: it.Params}
	}
	return out
}

// WriteIssues writes an error response.
func WriteIssues(w http.ResponseWriter, status int, iss tb.Issues) {
	w.Header().Set("Content-Type", jsonMediaType.String())
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorPayload(iss))
}
