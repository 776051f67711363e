package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agriconnectke/marketplace-service/config"
	"github.com/agriconnectke/marketplace-service/internal/advertisement"
	advrepo "github.com/agriconnectke/marketplace-service/internal/advertisement/repository"
	advuc "github.com/agriconnectke/marketplace-service/internal/advertisement/usecase"
	"github.com/agriconnectke/marketplace-service/internal/analytics"
	analyticsrepo "github.com/agriconnectke/marketplace-service/internal/analytics/repository"
	analyticsuc "github.com/agriconnectke/marketplace-service/internal/analytics/usecase"
	"github.com/agriconnectke/marketplace-service/internal/auth"
	"github.com/agriconnectke/marketplace-service/internal/category"
	catrepo "github.com/agriconnectke/marketplace-service/internal/category/repository"
	catuc "github.com/agriconnectke/marketplace-service/internal/category/usecase"
	"github.com/agriconnectke/marketplace-service/internal/events"
	"github.com/agriconnectke/marketplace-service/internal/mail"
	mailrepo "github.com/agriconnectke/marketplace-service/internal/mail/repository"
	mailuc "github.com/agriconnectke/marketplace-service/internal/mail/usecase"
	notifuc "github.com/agriconnectke/marketplace-service/internal/notification/usecase"
	"github.com/agriconnectke/marketplace-service/internal/payment"
	paymentrepo "github.com/agriconnectke/marketplace-service/internal/payment/repository"
	paymentuc "github.com/agriconnectke/marketplace-service/internal/payment/usecase"
	"github.com/agriconnectke/marketplace-service/internal/pkg/broker"
	"github.com/agriconnectke/marketplace-service/internal/pkg/cache"
	"github.com/agriconnectke/marketplace-service/internal/pkg/database"
	"github.com/agriconnectke/marketplace-service/internal/pkg/logger"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mailer"
	"github.com/agriconnectke/marketplace-service/internal/pkg/mpesa"
	"github.com/agriconnectke/marketplace-service/internal/pkg/search"
	"github.com/agriconnectke/marketplace-service/internal/pkg/storage"
	"github.com/agriconnectke/marketplace-service/internal/pkg/worker"
	"github.com/agriconnectke/marketplace-service/internal/review"
	reviewrepo "github.com/agriconnectke/marketplace-service/internal/review/repository"
	reviewuc "github.com/agriconnectke/marketplace-service/internal/review/usecase"
	"github.com/agriconnectke/marketplace-service/internal/subscription"
	subrepo "github.com/agriconnectke/marketplace-service/internal/subscription/repository"
	subuc "github.com/agriconnectke/marketplace-service/internal/subscription/usecase"
	"github.com/agriconnectke/marketplace-service/internal/user"
	userrepo "github.com/agriconnectke/marketplace-service/internal/user/repository"
	useruc "github.com/agriconnectke/marketplace-service/internal/user/usecase"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	eventTimeout   = 30 * time.Second
	releaseTimeout = 15 * time.Second
)

// services holds the infrastructure clients and the use cases built on them.
type services struct {
	cfg *config.Config
	log logger.ZapLogger

	db        *sqlx.DB
	files     *storage.Bucket
	cache     cache.Store
	pool      *worker.Pool
	consumer  *broker.KafkaConsumer
	publisher events.Publisher

	notifications    events.Handler
	users            user.UseCase
	categories       category.UseCase
	categoryRepo     category.Repository
	adverts          advertisement.UseCase
	reviews          review.UseCase
	payments         payment.UseCase
	subscriptions    subscription.UseCase
	subscriptionRepo subscription.Repository
	mail             mail.UseCase
	analytics        analytics.UseCase

	closers []func() error
}

func openDatabase(cfg *config.Config) (*sqlx.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return database.NewSQLite(cfg.Database.SQLitePath)
	case "postgres", "":
		return database.NewPostgres(&database.PostgresConfig{
			Host:            cfg.Postgres.Host,
			Port:            cfg.Postgres.Port,
			User:            cfg.Postgres.User,
			Password:        cfg.Postgres.Password,
			DBName:          cfg.Postgres.DBName,
			SSLMode:         cfg.Postgres.SSLMode,
			MaxOpenConns:    cfg.Postgres.MaxOpenConns,
			MaxIdleConns:    cfg.Postgres.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
}

func newServices(ctx context.Context, cfg *config.Config, log logger.ZapLogger) (*services, error) {
	s := &services{cfg: cfg, log: log}
	if err := s.init(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *services) init(ctx context.Context) error {
	cfg, log := s.cfg, s.log

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	s.db = db
	s.closers = append(s.closers, db.Close)
	log.Info("Connected to database", zap.String("driver", cfg.Database.Driver))

	s.files, err = storage.Open(ctx, cfg.Storage.BucketURL, strings.TrimRight(cfg.Server.PublicBaseURL, "/")+"/uploads")
	if err != nil {
		return err
	}
	s.closers = append(s.closers, s.files.Close)

	s.cache = s.openCache()

	s.pool, err = worker.NewPool(cfg.Workers.PoolSize, log)
	if err != nil {
		return fmt.Errorf("start worker pool: %w", err)
	}
	s.closers = append(s.closers, func() error { return s.pool.Release(releaseTimeout) })

	smtp, err := mailer.NewSMTPSender(&mailer.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		UseSSL:   cfg.Mail.UseSSL,
		From:     cfg.Mail.From,
	})
	if err != nil {
		return fmt.Errorf("configure smtp: %w", err)
	}
	sender := mailer.NewRetryingSender(smtp, cfg.Mail.RetryAttempts, cfg.Mail.RetryDelay, log)
	renderer, err := mailer.NewRenderer()
	if err != nil {
		return err
	}

	s.notifications = notifuc.NewNotificationUseCase(sender, renderer, notifuc.Options{
		From:        cfg.Mail.From,
		SiteName:    cfg.Mail.SiteName,
		FrontendURL: cfg.Server.FrontendURL,
		Admins:      cfg.Mail.Admins,
	}, log)

	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(&broker.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		s.closers = append(s.closers, producer.Close)
		s.publisher = events.NewKafkaPublisher(producer)
		s.consumer = broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		})
		s.closers = append(s.closers, s.consumer.Close)
		log.Info("Publishing events to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		s.publisher = events.NewLocalPublisher(s.notifications, s.pool, eventTimeout, log)
		log.Info("Kafka not configured, handling events in process")
	}

	gateway := mpesa.New(mpesa.Config{
		BaseURL:        cfg.Mpesa.APIURL,
		ConsumerKey:    cfg.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Mpesa.ShortCode,
		PassKey:        cfg.Mpesa.PassKey,
		CallbackURL:    cfg.Mpesa.CallbackURL,
		Timeout:        cfg.Mpesa.Timeout,
	})

	s.users = useruc.NewUserUseCase(
		userrepo.NewPGRepository(db),
		auth.NewResetTokens(cfg.Auth.ResetSecret, cfg.Auth.ResetTTL),
		s.publisher, s.files,
		useruc.Options{FrontendURL: cfg.Server.FrontendURL, TokenTTL: cfg.Auth.TokenTTL},
		log,
	)

	categoryRepo := catrepo.NewPGRepository(db)
	s.categoryRepo = categoryRepo
	s.categories = catuc.NewCategoryUseCase(categoryRepo, s.cache, s.files, log)

	s.adverts = advuc.NewAdvertisementUseCase(advrepo.NewPGRepository(db), s.cache, s.openSearch(), s.files, s.pool, log)
	s.reviews = reviewuc.NewReviewUseCase(reviewrepo.NewPGRepository(db), log)

	s.payments = paymentuc.NewPaymentUseCase(paymentrepo.NewPGRepository(db), gateway, s.cache, s.publisher,
		paymentuc.Options{ShortCode: cfg.Mpesa.ShortCode}, log)
	subscriptionRepo := subrepo.NewPGRepository(db)
	s.subscriptionRepo = subscriptionRepo
	s.subscriptions = subuc.NewSubscriptionUseCase(subscriptionRepo, gateway, s.payments, s.cache, log)

	s.mail = mailuc.NewMailUseCase(mailrepo.NewPGRepository(db), sender, renderer, s.files, mailuc.Options{
		From:     cfg.Mail.From,
		SiteName: cfg.Mail.SiteName,
	}, log)
	s.analytics = analyticsuc.NewAnalyticsUseCase(analyticsrepo.NewPGRepository(db), s.cache, log)
	return nil
}

// openCache prefers Redis and falls back to an in-process store.
func (s *services) openCache() cache.Store {
	if s.cfg.Redis.Addr == "" {
		return cache.NewMemory()
	}
	rc, err := cache.NewRedisClient(&cache.Config{
		Addr:     s.cfg.Redis.Addr,
		Password: s.cfg.Redis.Password,
		DB:       s.cfg.Redis.DB,
	})
	if err != nil {
		s.log.Warn("Could not connect to Redis, using in-memory cache", zap.String("addr", s.cfg.Redis.Addr), zap.Error(err))
		return cache.NewMemory()
	}
	s.closers = append(s.closers, rc.Close)
	s.log.Info("Connected to Redis", zap.String("addr", s.cfg.Redis.Addr))
	return rc
}

// openSearch returns nil when Elasticsearch is not configured or unreachable;
// advert search then runs against the database.
func (s *services) openSearch() search.Engine {
	if len(s.cfg.Elastic.Addresses) == 0 {
		return nil
	}
	es, err := search.NewClient(&search.Config{
		Addresses: s.cfg.Elastic.Addresses,
		Username:  s.cfg.Elastic.Username,
		Password:  s.cfg.Elastic.Password,
	})
	if err != nil {
		s.log.Warn("Could not connect to Elasticsearch", zap.Error(err))
		return nil
	}
	s.log.Info("Connected to Elasticsearch", zap.Strings("addresses", s.cfg.Elastic.Addresses))
	return es
}

// Close releases resources in reverse order of acquisition.
func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.Warn("Failed to release resource", zap.Error(err))
		}
	}
	s.closers = nil
}
