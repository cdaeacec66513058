package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foodrient/foodrient-backend/internal/modules/auth"
	"github.com/foodrient/foodrient-backend/internal/modules/cart"
	"github.com/foodrient/foodrient-backend/internal/modules/catalog"
	"github.com/foodrient/foodrient-backend/internal/modules/content"
	"github.com/foodrient/foodrient-backend/internal/modules/email"
	"github.com/foodrient/foodrient-backend/internal/modules/group"
	"github.com/foodrient/foodrient-backend/internal/modules/notification"
	"github.com/foodrient/foodrient-backend/internal/modules/order"
	"github.com/foodrient/foodrient-backend/internal/modules/payment"
	"github.com/foodrient/foodrient-backend/internal/modules/rating"
	"github.com/foodrient/foodrient-backend/internal/modules/routing"
	"github.com/foodrient/foodrient-backend/internal/modules/support"
	"github.com/foodrient/foodrient-backend/internal/modules/user"
	"github.com/foodrient/foodrient-backend/internal/modules/vendor"
	"github.com/foodrient/foodrient-backend/internal/platform/authz"
	"github.com/foodrient/foodrient-backend/internal/platform/config"
	"github.com/foodrient/foodrient-backend/internal/platform/database"
	"github.com/foodrient/foodrient-backend/internal/platform/httpx"
	"github.com/foodrient/foodrient-backend/internal/platform/logger"
	"github.com/foodrient/foodrient-backend/internal/platform/mailer"
	"github.com/foodrient/foodrient-backend/internal/platform/metrics"
	"github.com/foodrient/foodrient-backend/internal/platform/realtime"
	"github.com/foodrient/foodrient-backend/internal/platform/storage"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	log.Info("database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	uploads, err := storage.NewS3(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	mail, err := mailer.New(cfg.SMTP, log)
	if err != nil {
		return fmt.Errorf("mailer: %w", err)
	}
	templates, err := mailer.NewTemplates(cfg.App.PublicURL)
	if err != nil {
		return fmt.Errorf("templates: %w", err)
	}

	m := metrics.New()
	hub := realtime.NewHub(log)
	issuer := authz.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL)
	paystack := payment.NewPaystack(cfg.Paystack)

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(logger.Middleware(log))
	router.Use(m.Middleware)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			httpx.Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "database unavailable"})
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			httpx.Respond(w, http.StatusServiceUnavailable, map[string]string{"status": "redis unavailable"})
			return
		}
		httpx.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Handle("/metrics", m.Handler())

	authn := issuer.Authenticate

	// ── Identity & staff ────────────────────────────────────
	userRepo := user.NewPostgresRepository(db)
	supportService := support.NewService(support.NewPostgresRepository(db), userRepo, cfg.Fees.SupportCommissionRate, cfg.App.PublicURL)
	userService := user.NewService(userRepo, supportService)
	user.NewHandler(userService).RegisterRoutes(router, authn)
	support.NewHandler(supportService).RegisterRoutes(router, authn)

	authService := auth.NewService(userService, issuer, auth.NewRedisTokenStore(rdb), mail, templates)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Vendors & catalog ───────────────────────────────────
	vendorRepo := vendor.NewPostgresRepository(db)
	vendorService := vendor.NewService(vendor.Deps{
		Repo:        vendorRepo,
		Issuer:      issuer,
		Subaccounts: paystack,
		Mail:        mail,
		Templates:   templates,
		Uploads:     uploads,
		FeePercent:  cfg.Fees.PlatformPercent,
	})
	vendor.NewHandler(vendorService).RegisterRoutes(router, authn)

	catalogRepo := catalog.NewPostgresRepository(db)
	catalog.NewHandler(catalog.NewService(catalogRepo, vendorRepo, uploads)).RegisterRoutes(router, authn)

	// ── Notifications ───────────────────────────────────────
	notificationService := notification.NewService(notification.NewPostgresRepository(db), hub)
	notification.NewHandler(notificationService, hub).RegisterRoutes(router, authn)

	// ── Group buying, carts & orders ────────────────────────
	groupService := group.NewService(group.Deps{
		Repo:      group.NewPostgresRepository(db),
		Products:  catalogRepo,
		Users:     userRepo,
		Notifier:  notificationService,
		Mail:      mail,
		Templates: templates,
		Publisher: hub,
		Metrics:   m,
	})
	group.NewHandler(groupService, hub).RegisterRoutes(router, authn)

	cartService := cart.NewService(cart.NewRedisStore(rdb), catalogRepo)
	cart.NewHandler(cartService).RegisterRoutes(router, authn)

	orderService := order.NewService(order.Deps{
		Repo:     order.NewPostgresRepository(db),
		Products: catalogRepo,
		Vendors:  vendorRepo,
		Carts:    cartService,
		Members:  groupService,
		Notifier: notificationService,
		Metrics:  m,
	})
	order.NewHandler(orderService).RegisterRoutes(router, authn)

	// ── Payments ────────────────────────────────────────────
	paymentService := payment.NewService(payment.Deps{
		Repo:        payment.NewPostgresRepository(db),
		Gateway:     paystack,
		Orders:      orderService,
		GroupOrders: groupService,
		Users:       userRepo,
		Banks:       vendorRepo,
		SecretKey:   cfg.Paystack.SecretKey,
		CallbackURL: cfg.App.PublicURL + "/payment/callback",
	})
	payment.NewHandler(paymentService).RegisterRoutes(router, authn)

	// ── Delivery routes, ratings & content ──────────────────
	routing.NewHandler(routing.NewService(routing.NewPostgresRepository(db), vendorRepo, orderService)).RegisterRoutes(router, authn)
	rating.NewHandler(rating.NewService(rating.NewPostgresRepository(db), orderService)).RegisterRoutes(router, authn)

	contentRepo := content.NewCachedRepository(content.NewPostgresRepository(db), rdb)
	content.NewHandler(content.NewService(contentRepo)).RegisterRoutes(router, authn)

	email.NewHandler(mail, cfg.Email, m).RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("foodrient api starting", zap.String("addr", srv.Addr), zap.String("env", cfg.App.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		database.LogStats(log, db)
		return err
	})
	return g.Wait()
}
