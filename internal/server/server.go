// Package server assembles the HTTP router and the gRPC health server.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/pkg/apperror"
	"github.com/agriconnectke/marketplace-service/internal/pkg/httpx"
	"github.com/agriconnectke/marketplace-service/internal/pkg/i18n"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gocloud.dev/blob"
)

// Registrar mounts a module's routes under /api.
type Registrar interface {
	Register(r *mux.Router, mw *auth.Middleware)
}

// Files serves stored uploads.
type Files interface {
	Open(ctx context.Context, key string) (*blob.Reader, error)
}

type Options struct {
	PublicBaseURL string
	CORSOrigins   []string
}

type Config struct {
	Options    Options
	Auth       *auth.Middleware
	Translator *i18n.Translator
	Files      Files
	// Traffic wraps the router inside authentication; nil disables it.
	Traffic func(http.Handler) http.Handler
	Modules []Registrar
	Logger  logger.ZapLogger
}

// NewHandler builds the full HTTP stack:
// recovery, access log, CORS, translator, slash stripping, auth, traffic, router.
func NewHandler(cfg Config) http.Handler {
	root := mux.NewRouter()
	root.HandleFunc("/health", health).Methods(http.MethodGet).Name("health")
	if cfg.Files != nil {
		root.Handle("/uploads/{key:.+}", uploads(cfg.Files, cfg.Logger)).Methods(http.MethodGet, http.MethodHead).Name("uploads")
	}

	root.Handle("/api", apiRoot(root, cfg.Options.PublicBaseURL)).Methods(http.MethodGet).Name("api-root")
	api := root.PathPrefix("/api").Subrouter()
	for _, m := range cfg.Modules {
		m.Register(api, cfg.Auth)
	}
	root.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, r, cfg.Logger, apperror.ErrNotFound)
	})
	root.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "Method not allowed."})
	})

	var h http.Handler = root
	if cfg.Traffic != nil {
		h = cfg.Traffic(h)
	}
	h = cfg.Auth.Authenticate(h)
	h = StripSlash(h)
	h = httpx.WithTranslator(cfg.Translator)(h)
	h = handlers.CORS(
		handlers.AllowedOrigins(cfg.Options.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type", "Accept-Language", "X-Requested-With"}),
		handlers.AllowCredentials(),
	)(h)
	h = AccessLog(cfg.Logger)(h)
	return handlers.RecoveryHandler(handlers.RecoveryLogger(recoveryLogger{cfg.Logger}))(h)
}

func health(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// apiRoot lists every named route under /api with its path template.
func apiRoot(router *mux.Router, baseURL string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		links := map[string]string{}
		_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
			name := route.GetName()
			tpl, err := route.GetPathTemplate()
			if name == "" || err != nil || !strings.HasPrefix(tpl, "/api/") {
				return nil
			}
			links[name] = strings.TrimRight(baseURL, "/") + tpl + "/"
			return nil
		})
		httpx.JSON(w, http.StatusOK, links)
	})
}

func uploads(files Files, log logger.ZapLogger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rd, err := files.Open(r.Context(), mux.Vars(r)["key"])
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpx.Error(w, r, log, apperror.ErrNotFound)
				return
			}
			httpx.Error(w, r, log, err)
			return
		}
		defer rd.Close()

		w.Header().Set("Content-Type", rd.ContentType())
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = io.Copy(w, rd)
	})
}
