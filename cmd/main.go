package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/kingsleycodes247/poshlounge/internal/api"
	"github.com/kingsleycodes247/poshlounge/internal/config"
	"github.com/kingsleycodes247/poshlounge/internal/entity"
	"github.com/kingsleycodes247/poshlounge/internal/printer"
	"github.com/kingsleycodes247/poshlounge/internal/repository"
	"github.com/kingsleycodes247/poshlounge/internal/service"
	"github.com/kingsleycodes247/poshlounge/internal/signal"
	"github.com/kingsleycodes247/poshlounge/migrations"
)

func connectDB(dsn string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("mysql", dsn)
		if err == nil {
			err = db.Ping()
			if err == nil {
				log.Printf("✅ Connected to DB")
				return db, nil
			}
		}
		log.Printf("❌ Retry %d: Failed to connect to DB: %v", i+1, err)
		time.Sleep(3 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to DB after retries: %v", err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectDB(cfg.DSN())
	if err != nil {
		panic(err)
	}

	if err := migrations.AutoMigrate(3, db); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})

	kafkaWriter := config.NewKafkaWriter(cfg.KafkaTopic)
	events := service.NewKafkaPublisher(kafkaWriter)
	hub := signal.NewHub(rdb)
	receiptPrinter := printer.NewNetwork(cfg.PrinterAddr)

	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	shiftRepo := repository.NewShiftRepository(db)
	userRepo := repository.NewUserRepository(db)
	tableRepo := repository.NewTableRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	// Order mutation and payment collection serialize on the same keys.
	orderLocks := service.NewLockTable()

	auditService := service.NewAuditService(auditRepo)
	ledgerService := service.NewLedgerService(productRepo, auditService, events, hub)
	orderService := service.NewOrderService(orderRepo, tableRepo, ledgerService, auditService, events, hub, cfg.TaxRate, orderLocks)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, tableRepo, userRepo, shiftRepo, auditService, events, hub, receiptPrinter,
		service.ReceiptInfo{BusinessName: cfg.BusinessName, Address: cfg.BusinessAddress, TaxID: cfg.BusinessTaxID}, orderLocks)
	shiftService := service.NewShiftService(shiftRepo, paymentRepo, auditService, cfg.CashVarianceThreshold)
	deviceService := service.NewDeviceService(userRepo, hub, auditService, []byte(cfg.JWTSecret))

	go purgeLoop(auditService, cfg.AuditRetentionDays)

	e := echo.New()

	limiterConfig := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(20),
				Burst:     50,
				ExpiresIn: 3 * time.Minute,
			}),
		IdentifierExtractor: func(context echo.Context) (string, error) {
			return context.Request().RemoteAddr, nil
		},
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(429, map[string]string{"error": "rate limit exceeded"})
		},
	}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RateLimiterWithConfig(limiterConfig))

	api.Register(e, api.Handlers{
		Auth:     api.NewAuthHandler(deviceService),
		Orders:   api.NewOrderHandler(orderService),
		Payments: api.NewPaymentHandler(paymentService, hub),
		Ledger:   api.NewLedgerHandler(ledgerService),
		Shifts:   api.NewShiftHandler(shiftService),
		Audit:    api.NewAuditHandler(auditService),
		Devices:  deviceService,
	}, []byte(cfg.JWTSecret))

	e.Logger.Fatal(e.Start(cfg.HTTPAddr))
}

// purgeLoop enforces the audit retention window once a day.
func purgeLoop(audit *service.AuditService, retentionDays int) {
	system := entity.ActorContext{Username: "system", Role: entity.RoleAdmin}
	for {
		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		if _, err := audit.Purge(context.Background(), system, cutoff); err != nil {
			log.Printf("Audit purge failed: %v", err)
		}
		time.Sleep(24 * time.Hour)
	}
}
