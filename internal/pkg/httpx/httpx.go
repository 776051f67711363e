// Package httpx holds the JSON request and response helpers shared by the
// HTTP handlers.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/i18n"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

const maxJSONBody = 1 << 20

var ErrMalformedJSON = apperror.New(codes.InvalidArgument, "malformed_json", "Malformed JSON request body.")

type translatorKey struct{}

// WithTranslator makes tr available to Error for every request.
func WithTranslator(tr *i18n.Translator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), translatorKey{}, tr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func translator(r *http.Request) *i18n.Translator {
	tr, _ := r.Context().Value(translatorKey{}).(*i18n.Translator)
	return tr
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a JSON body into v. An empty body leaves v untouched.
func Decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ErrMalformedJSON
	}
	return nil
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// StatusFor maps a domain error code to an HTTP status.
func StatusFor(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return http.StatusBadRequest
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.NotFound:
		return http.StatusNotFound
	case codes.AlreadyExists, codes.Aborted:
		return http.StatusConflict
	case codes.ResourceExhausted:
		return http.StatusTooManyRequests
	case codes.Unavailable:
		return http.StatusBadGateway
	case codes.DeadlineExceeded:
		return http.StatusGatewayTimeout
	case codes.Unimplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as a localised JSON error. Unclassified errors are logged
// and hidden from the client.
func Error(w http.ResponseWriter, r *http.Request, log logger.ZapLogger, err error) {
	code := apperror.Code(err)
	status := StatusFor(code)
	tr := translator(r)
	lang := r.Header.Get("Accept-Language")

	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		JSON(w, status, errorBody{
			Error:  tr.Translate(lang, "validation_failed", "Some fields are invalid."),
			Fields: ve.Fields,
		})
		return
	}

	var ae *apperror.Error
	if errors.As(err, &ae) {
		if status >= http.StatusInternalServerError || code == codes.Unavailable {
			log.Warn("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		JSON(w, status, errorBody{Error: tr.Translate(lang, ae.ID, ae.Message)})
		return
	}

	log.Error("unhandled error", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	JSON(w, http.StatusInternalServerError, errorBody{
		Error: tr.Translate(lang, "internal_error", "Something went wrong. Please try again."),
	})
}
