package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
)

// Config carries every environment-driven setting the process needs.
type Config struct {
	HTTPAddr string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisAddr   string
	KafkaTopic  string
	JWTSecret   string
	PrinterAddr string

	TaxRate               decimal.Decimal
	CashVarianceThreshold decimal.Decimal
	AuditRetentionDays    int

	BusinessName    string
	BusinessAddress string
	BusinessTaxID   string
}

func Load() (Config, error) {
	cfg := Config{
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		DBHost:      getenv("DB_HOST", "localhost"),
		DBPort:      getenv("DB_PORT", "3306"),
		DBUser:      getenv("DB_USER", "root"),
		DBPass:      os.Getenv("DB_PASS"),
		DBName:      getenv("DB_NAME", "poshlounge"),
		RedisAddr:   getenv("REDIS_ADDR", "localhost:6379"),
		KafkaTopic:  getenv("KAFKA_TOPIC", "pos-events"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		PrinterAddr: getenv("PRINTER_ADDR", "localhost:9100"),

		BusinessName:    getenv("BUSINESS_NAME", "Posh Lounge"),
		BusinessAddress: os.Getenv("BUSINESS_ADDRESS"),
		BusinessTaxID:   os.Getenv("BUSINESS_TAX_ID"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	var err error
	cfg.TaxRate, err = parseDecimal("TAX_RATE", "0")
	if err != nil {
		return Config{}, err
	}
	cfg.CashVarianceThreshold, err = parseDecimal("CASH_VARIANCE_THRESHOLD", "1000")
	if err != nil {
		return Config{}, err
	}
	cfg.AuditRetentionDays, err = parseInt("AUDIT_RETENTION_DAYS", 365)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DSN builds the MySQL connection string. parseTime lets DATETIME columns
// scan into time.Time.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDecimal(key, fallback string) (decimal.Decimal, error) {
	raw := getenv(key, fallback)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %v", key, raw, err)
	}
	return d, nil
}

func parseInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, raw, err)
	}
	return n, nil
}
