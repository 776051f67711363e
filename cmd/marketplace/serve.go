package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	advhandler "github.com/agriconnectke/marketplace-service/internal/advertisement/handler"
	analyticshandler "github.com/agriconnectke/marketplace-service/internal/analytics/handler"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	cathandler "github.com/agriconnectke/marketplace-service/internal/category/handler"
	mailhandler "github.com/agriconnectke/marketplace-service/internal/mail/handler"
	"github.com/agriconnectke/marketplace-service/internal/notification/listener"
	paymenthandler "github.com/agriconnectke/marketplace-service/internal/payment/handler"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/agriconnectke/marketplace-service/internal/pkg/i18n"
	reviewhandler "github.com/agriconnectke/marketplace-service/internal/review/handler"
	"github.com/agriconnectke/marketplace-service/internal/server"
	subhandler "github.com/agriconnectke/marketplace-service/internal/subscription/handler"
	userhandler "github.com/agriconnectke/marketplace-service/internal/user/handler"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, c, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

func serve(ctx context.Context, c *cli, migrate bool) error {
	log := c.log
	svc, err := newServices(ctx, c.cfg, log)
	if err != nil {
		return err
	}
	defer svc.Close()

	if migrate {
		applied, err := database.Migrate(ctx, svc.db)
		if err != nil {
			return err
		}
		log.Info("Migrations applied", zap.Strings("versions", applied))
	}

	tr, err := i18n.New()
	if err != nil {
		return err
	}

	urlFor := svc.files.URL
	traffic := analyticshandler.NewTraffic(svc.analytics, svc.pool, log)
	handler := server.NewHandler(server.Config{
		Options: server.Options{
			PublicBaseURL: c.cfg.Server.PublicBaseURL,
			CORSOrigins:   c.cfg.Server.CORSOrigins,
		},
		Auth:       auth.NewMiddleware(svc.users, log),
		Translator: tr,
		Files:      svc.files,
		Traffic:    traffic.Middleware,
		Modules: []server.Registrar{
			userhandler.NewUserHandler(svc.users, urlFor, log),
			cathandler.NewCategoryHandler(svc.categories, urlFor, log),
			advhandler.NewAdvertisementHandler(svc.adverts, urlFor, log),
			reviewhandler.NewReviewHandler(svc.reviews, log),
			subhandler.NewSubscriptionHandler(svc.subscriptions, log),
			paymenthandler.NewPaymentHandler(svc.payments, c.cfg.Mpesa.CallbackToken, log),
			mailhandler.NewMailHandler(svc.mail, urlFor, log),
			analyticshandler.NewAnalyticsHandler(svc.analytics, log),
		},
		Logger: log,
	})

	httpSrv := &http.Server{
		Addr:              listenAddr(c.cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	grpcSrv := server.NewGRPCServer(log)
	lis, err := net.Listen("tcp", listenAddr(c.cfg.Server.GRPCPort))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Starting HTTP server", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Starting gRPC server", zap.String("addr", lis.Addr().String()))
		return grpcSrv.Server.Serve(lis)
	})
	if svc.consumer != nil {
		l := listener.NewEventListener(svc.consumer, svc.notifications, log)
		g.Go(func() error {
			l.Start(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		grpcSrv.Shutdown()
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server stopped")
	return nil
}

func listenAddr(port string) string {
	if !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}
