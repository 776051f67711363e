package handler

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/internal/analytics"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/model"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/worker"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const trackTimeout = 5 * time.Second

// Traffic records a page visit and a site visit for every request after it
// has been served. It must run inside auth.Middleware.Authenticate so the
// caller is known.
type Traffic struct {
	uc     analytics.UseCase
	runner worker.Runner
	logger logger.ZapLogger
	now    func() time.Time
}

func NewTraffic(uc analytics.UseCase, runner worker.Runner, log logger.ZapLogger) *Traffic {
	return &Traffic{uc: uc, runner: runner, logger: log, now: model.Now}
}

func tracked(path string) bool {
	return !strings.HasPrefix(path, "/admin/") && path != "/health" && !strings.HasPrefix(path, "/health/")
}

// ClientIP prefers the first X-Forwarded-For entry over the peer address.
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (t *Traffic) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if !tracked(r.URL.Path) {
			return
		}

		now := t.now()
		ip := ClientIP(r)
		isAPI := strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api"
		page := &model.PageVisit{
			ID:        uuid.New().String(),
			IPAddress: ip,
			Path:      r.URL.Path,
			Method:    r.Method,
			IsAPICall: isAPI,
			Referer:   optional(r.Referer()),
			UserAgent: optional(r.UserAgent()),
			VisitedAt: now,
		}
		if id := auth.GetUserID(r.Context()); id != "" {
			page.UserID = &id
		}
		if isAPI {
			page.TokenKey = optional(auth.TokenKeyFromContext(r.Context()))
		}
		site := &model.SiteVisit{
			ID:        uuid.New().String(),
			IPAddress: ip,
			UserAgent: r.UserAgent(),
			Path:      r.URL.Path,
			VisitedAt: now,
		}

		t.runner.Go(func() {
			ctx, cancel := context.WithTimeout(context.Background(), trackTimeout)
			defer cancel()
			if err := t.uc.Track(ctx, page, site); err != nil {
				t.logger.Warn("failed to record visit", zap.String("path", page.Path), zap.Error(err))
			}
		})
	})
}
