// Package storage keeps entity schema versions and registered accounts in MySQL, SQLite
// or MongoDB.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tilegate/gethook/player"
)

const (
	EntityVersionTable = "EntityVersion"
	AccountTable       = "Account"

	defaultTimeout = 5 * time.Second
	maxNameLen     = 64
)

var (
	ErrUnsupportedDriver = errors.New("not supported storage type")
	ErrInvalidName       = errors.New("invalid name")
)

type Config struct {
	Driver   string // mysql, sqlite or mongo
	DSN      string
	Database string // mongo only
	Timeout  time.Duration
}

type Store interface {
	EnsureDataStructure(ctx context.Context) error
	TableExists(ctx context.Context, name string) (bool, error)
	EntityVersion(ctx context.Context, name string) (uint8, bool, error)
	// AddOrUpdateEntityVersion records version unless a higher one is already stored.
	AddOrUpdateEntityVersion(ctx context.Context, name string, version uint8) error
	AddAccount(ctx context.Context, name string) (player.Account, error)
	FindAccount(ctx context.Context, name string) (player.Account, bool, error)
	Close() error
}

func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	switch strings.ToLower(cfg.Driver) {
	case "mysql":
		return OpenSQL(ctx, DialectMySQL, cfg.DSN)
	case "sqlite":
		return OpenSQL(ctx, DialectSQLite, cfg.DSN)
	case "mongo":
		return OpenMongo(ctx, cfg.DSN, cfg.Database, cfg.Timeout)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" || len(name) > maxNameLen {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// AccountLookup adapts a Store to player.AccountStore with a fixed timeout per lookup.
type AccountLookup struct {
	Store   Store
	Timeout time.Duration
}

func (a AccountLookup) AccountByName(name string) (player.Account, bool, error) {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Store.FindAccount(ctx, name)
}
