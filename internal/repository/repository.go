// Package repository holds the MySQL persistence layer. Each method that
// a service hands a command struct to runs as a single transaction, so an
// order write and its inventory movement commit or roll back together.
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"

	"github.com/kingsleycodes247/poshlounge/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const (
	// MySQL error numbers this layer translates into domain errors.
	mysqlDupEntry     = 1062
	mysqlSignalRaised = 1644
)

// translateErr maps driver-level failures onto the domain error taxonomy.
// Duplicate keys surface as state conflicts; trigger signals guard the
// append-only tables and surface as immutability violations.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%v: %w", err, entity.ErrNotFound)
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case mysqlDupEntry:
			return fmt.Errorf("%v: %w", err, entity.ErrStateConflict)
		case mysqlSignalRaised:
			return fmt.Errorf("%v: %w", err, entity.ErrImmutable)
		}
	}
	return err
}

func notFound(what string, key interface{}) error {
	return fmt.Errorf("%s %v: %w", what, key, entity.ErrNotFound)
}
