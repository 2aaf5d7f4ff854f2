package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	domnotification "example.com/gallery-storefront/app/internal/domain/notification"
	domorder "example.com/gallery-storefront/app/internal/domain/order"
	dompayment "example.com/gallery-storefront/app/internal/domain/payment"
	domuser "example.com/gallery-storefront/app/internal/domain/user"
	"example.com/gallery-storefront/app/internal/config"
	"example.com/gallery-storefront/app/internal/infra/cache"
	"example.com/gallery-storefront/app/internal/infra/invoice"
	"example.com/gallery-storefront/app/internal/infra/mailer"
	"example.com/gallery-storefront/app/internal/infra/messaging/rabbitmq"
	"example.com/gallery-storefront/app/internal/infra/metrics"
	"example.com/gallery-storefront/app/internal/infra/payment/stripe"
	"example.com/gallery-storefront/app/internal/infra/payment/yoco"
	"example.com/gallery-storefront/app/internal/infra/persistence/sqlstore"
	"example.com/gallery-storefront/app/internal/infra/scheduler"
	"example.com/gallery-storefront/app/internal/infra/security"
	"example.com/gallery-storefront/app/internal/infra/storage"
	apihttp "example.com/gallery-storefront/app/internal/interface/http"
	"example.com/gallery-storefront/app/internal/logging"
	artworkuc "example.com/gallery-storefront/app/internal/usecase/artwork"
	authuc "example.com/gallery-storefront/app/internal/usecase/auth"
	cartuc "example.com/gallery-storefront/app/internal/usecase/cart"
	categoryuc "example.com/gallery-storefront/app/internal/usecase/category"
	checkoutuc "example.com/gallery-storefront/app/internal/usecase/checkout"
	dashboarduc "example.com/gallery-storefront/app/internal/usecase/dashboard"
	inquiryuc "example.com/gallery-storefront/app/internal/usecase/inquiry"
	notificationuc "example.com/gallery-storefront/app/internal/usecase/notification"
	orderuc "example.com/gallery-storefront/app/internal/usecase/order"
	paymentuc "example.com/gallery-storefront/app/internal/usecase/payment"
	useruc "example.com/gallery-storefront/app/internal/usecase/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	store, err := sqlstore.Open(ctx, sqlstore.Dialect(cfg.DBDriver), cfg.DatabaseURL, sqlstore.PoolOptions{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.DBMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		log.WithField("driver", cfg.DBDriver).Info("database schema up to date")
	}

	userRepo := sqlstore.NewUserRepository(store)
	categoryRepo := sqlstore.NewCategoryRepository(store)
	artworkRepo := sqlstore.NewArtworkRepository(store)
	cartRepo := sqlstore.NewCartRepository(store)
	var orderRepo domorder.Repository = sqlstore.NewOrderRepository(store)
	inquiryRepo := sqlstore.NewInquiryRepository(store)
	ledger := sqlstore.NewWebhookLedger(store)

	recorder := metrics.New()
	hasher := security.NewBcryptService(cfg.BcryptCost)
	tokenSvc := security.NewJWTService(cfg.JWTSecret, cfg.JWTTTL)
	invoices := invoice.NewRenderer(invoice.Issuer{
		Name:      cfg.GalleryName,
		Address:   cfg.GalleryAddress,
		VATNumber: cfg.GalleryVATNumber,
	})

	userSvc := useruc.NewService(userRepo, hasher)
	if err := bootstrapAdmin(ctx, cfg, userSvc, userRepo, log); err != nil {
		return err
	}

	// Media storage
	artworkOpts := artworkuc.Options{BaseDays: cfg.BaseProcessingDays, Logger: log}
	var mediaDir string
	switch cfg.StorageDriver {
	case config.StorageSupabase:
		sb, err := storage.NewSupabase(storage.SupabaseConfig{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.StorageBucket,
		})
		if err != nil {
			return err
		}
		artworkOpts.Storage = sb
	default:
		local, err := storage.NewLocal(cfg.LocalStorageDir, cfg.PublicBaseURL)
		if err != nil {
			return err
		}
		artworkOpts.Storage = local
		mediaDir = local.Root()
	}

	if cfg.RedisURL != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		catalogue := cache.NewRedis(rdb, "catalogue:", cfg.CatalogueCacheTTL)
		artworkOpts.Cache = catalogue
		orderRepo = cache.NewStockTracking(orderRepo, catalogue, log)
		log.Info("catalogue cache enabled")
	}

	// Payment gateways
	var gateways []dompayment.Gateway
	if cfg.StripeEnabled() {
		gateways = append(gateways, stripe.New(stripe.Config{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Logger:        log,
		}))
	}
	if cfg.YocoEnabled() {
		gateways = append(gateways, yoco.New(yoco.Config{
			SecretKey:     cfg.YocoSecretKey,
			WebhookSecret: cfg.YocoWebhookSecret,
			APIURL:        cfg.YocoAPIURL,
			Logger:        log,
		}))
	}
	if len(gateways) == 0 {
		log.Warn("no payment provider configured, checkout is disabled")
	}

	// Notifications
	var publisher domnotification.Publisher
	if cfg.MailEnabled() {
		smtpMailer, err := mailer.NewSMTP(mailer.Config{
			Addr:     cfg.SMTPAddr,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
		if err != nil {
			return err
		}
		templates, err := mailer.NewTemplates(cfg.GalleryName)
		if err != nil {
			return err
		}
		notifySvc := notificationuc.NewService(orderRepo, inquiryRepo, smtpMailer, templates, notificationuc.Options{
			AdminEmail: cfg.AdminEmail,
			Invoices:   invoices,
			Logger:     log,
			Metrics:    recorder,
		})

		if cfg.RabbitMQURL != "" {
			conn, err := rabbitmq.Dial(cfg.RabbitMQURL)
			if err != nil {
				return err
			}
			defer conn.Close()
			pool, err := rabbitmq.NewChannelPool(conn, cfg.RabbitMQQueue, cfg.RabbitMQPoolSize, log)
			if err != nil {
				return err
			}
			defer pool.Close()
			publisher = rabbitmq.NewPublisher(pool, cfg.RabbitMQQueue, log)

			consumer := rabbitmq.NewConsumer(conn, cfg.RabbitMQQueue, "gallery-notifier", notifySvc, log)
			go func() {
				if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Error("notification consumer stopped")
				}
			}()
			log.WithField("queue", cfg.RabbitMQQueue).Info("notifications via rabbitmq")
		} else {
			publisher = notificationuc.NewInline(notifySvc)
			log.Info("notifications delivered inline")
		}
	} else {
		log.Warn("SMTP not configured, notifications are disabled")
	}

	// Use cases
	cartSvc := cartuc.NewService(cartRepo, artworkRepo, cfg.BaseProcessingDays)
	domestic, international, freeThreshold := cfg.ShippingFees()
	orderSvc := orderuc.NewService(orderRepo, orderuc.Options{
		Publisher: publisher,
		Invoices:  invoices,
		Logger:    log,
		Metrics:   recorder,
	})

	api := apihttp.NewAPI(apihttp.Dependencies{
		AuthService:     authuc.NewService(userRepo, hasher, tokenSvc),
		UserService:     userSvc,
		CategoryService: categoryuc.NewService(categoryRepo),
		ArtworkService:  artworkuc.NewService(artworkRepo, artworkOpts),
		CartService:     cartSvc,
		CheckoutService: checkoutuc.NewService(cartSvc, orderRepo, gateways, checkoutuc.Options{
			Shipping: domorder.ShippingPolicy{
				HomeCountry:   cfg.HomeCountry,
				Domestic:      domestic,
				International: international,
				FreeThreshold: freeThreshold,
			},
			Currency:       cfg.Currency,
			ReservationTTL: cfg.ReservationTTL,
			PublicBaseURL:  cfg.PublicBaseURL,
			Logger:         log,
			Metrics:        recorder,
		}),
		OrderService: orderSvc,
		PaymentService: paymentuc.NewService(orderRepo, ledger, gateways, paymentuc.Options{
			Publisher: publisher,
			Logger:    log,
			Metrics:   recorder,
		}),
		InquiryService:       inquiryuc.NewService(inquiryRepo, artworkRepo, publisher, log),
		DashboardService:     dashboarduc.NewService(orderRepo, artworkRepo, inquiryRepo, cfg.LowStockThreshold),
		TokenService:         tokenSvc,
		Logger:               log,
		Metrics:              recorder,
		MediaDir:             mediaDir,
		LoginRatePerMinute:   cfg.LoginRatePerMinute,
		InquiryRatePerMinute: cfg.InquiryRatePerMinute,
	})

	jobs := scheduler.New(log)
	if err := jobs.Add(scheduler.ReservationExpirySpec, "expire-reservations", scheduler.ExpireReservations(orderSvc, time.Now, log)); err != nil {
		return err
	}
	jobs.Start()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	jobs.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}

// bootstrapAdmin makes sure the configured super admin exists so a fresh
// database can be administered.
func bootstrapAdmin(ctx context.Context, cfg config.Config, users *useruc.Service, repo domuser.Repository, log logrus.FieldLogger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	email := authuc.NormalizeEmail(cfg.BootstrapAdminEmail)
	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, domuser.ErrUserNotFound) {
		return err
	}

	_, err := users.CreateUser(ctx, useruc.CreateUserInput{
		ExecutorRole: domuser.RoleCodeSuperAdmin,
		Name:         "Administrator",
		Email:        email,
		Password:     cfg.BootstrapAdminPassword,
		RoleCode:     domuser.RoleCodeSuperAdmin,
	})
	if err != nil {
		return err
	}
	log.WithField("email", email).Info("bootstrap super admin created")
	return nil
}
