package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/tilegate/gethook/player"
	_ "modernc.org/sqlite"
)

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectMySQL
)

func (d Dialect) driverName() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "sqlite"
}

type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	closeOnce sync.Once
	closeErr  error
}

func OpenSQL(ctx context.Context, dialect Dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("storage dsn is required")
	}

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect.driverName(), err)
	}
	if dialect == DialectSQLite {
		// one writer keeps sqlite from reporting SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect.driverName(), err)
	}

	return &SQLStore{db: db, dialect: dialect}, nil
}

func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) schema() []string {
	if s.dialect == DialectMySQL {
		return []string{
			`CREATE TABLE IF NOT EXISTS EntityVersion (
  Name varchar(64) NOT NULL,
  Version tinyint UNSIGNED NOT NULL DEFAULT 1,
  PRIMARY KEY (Name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8_bin`,
			`CREATE TABLE IF NOT EXISTS Account (
  ID int NOT NULL AUTO_INCREMENT,
  Name varchar(64) NOT NULL,
  PRIMARY KEY (ID),
  UNIQUE KEY (Name)
) ENGINE=InnoDB DEFAULT CHARSET=utf8 COLLATE=utf8_bin`,
		}
	}

	return []string{
		`CREATE TABLE IF NOT EXISTS EntityVersion (
  Name varchar(64) NOT NULL,
  Version tinyint UNSIGNED NOT NULL DEFAULT 1,
  PRIMARY KEY (Name)
)`,
		`CREATE TABLE IF NOT EXISTS Account (
  ID INTEGER PRIMARY KEY AUTOINCREMENT,
  Name varchar(64) NOT NULL UNIQUE
)`,
	}
}

func (s *SQLStore) EnsureDataStructure(ctx context.Context) error {
	for _, stmt := range s.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure data structure: %w", err)
		}
	}

	if err := s.AddOrUpdateEntityVersion(ctx, EntityVersionTable, 1); err != nil {
		return err
	}
	return s.AddOrUpdateEntityVersion(ctx, AccountTable, 1)
}

func (s *SQLStore) TableExists(ctx context.Context, name string) (bool, error) {
	query := `SELECT name FROM sqlite_master WHERE type='table' AND name=?`
	if s.dialect == DialectMySQL {
		query = `SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA=DATABASE() AND TABLE_NAME=?`
	}

	var found string
	err := s.db.QueryRowContext(ctx, query, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return true, nil
}

func (s *SQLStore) EntityVersion(ctx context.Context, name string) (uint8, bool, error) {
	var version uint8
	err := s.db.QueryRowContext(ctx, `SELECT Version FROM EntityVersion WHERE Name = ?`, name).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("entity version %s: %w", name, err)
	}
	return version, true, nil
}

func (s *SQLStore) AddOrUpdateEntityVersion(ctx context.Context, name string, version uint8) error {
	if err := checkName(name); err != nil {
		return err
	}

	insert := `INSERT OR IGNORE INTO EntityVersion (Name, Version) VALUES (?, ?)`
	if s.dialect == DialectMySQL {
		insert = `INSERT IGNORE INTO EntityVersion (Name, Version) VALUES (?, ?)`
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, insert, name, version); err != nil {
		return fmt.Errorf("insert entity version %s: %w", name, err)
	}
	if _, err = tx.ExecContext(ctx, `UPDATE EntityVersion SET Version = ? WHERE Name = ? AND Version < ?`, version, name, version); err != nil {
		return fmt.Errorf("update entity version %s: %w", name, err)
	}

	return tx.Commit()
}

func (s *SQLStore) AddAccount(ctx context.Context, name string) (player.Account, error) {
	if err := checkName(name); err != nil {
		return player.Account{}, err
	}

	res, err := s.db.ExecContext(ctx, `INSERT INTO Account (Name) VALUES (?)`, name)
	if err != nil {
		return player.Account{}, fmt.Errorf("add account %s: %w", name, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return player.Account{}, err
	}

	return player.Account{ID: int(id), Name: name}, nil
}

func (s *SQLStore) FindAccount(ctx context.Context, name string) (player.Account, bool, error) {
	var account player.Account
	err := s.db.QueryRowContext(ctx, `SELECT ID, Name FROM Account WHERE Name = ?`, name).Scan(&account.ID, &account.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return player.Account{}, false, nil
	}
	if err != nil {
		return player.Account{}, false, fmt.Errorf("find account %s: %w", name, err)
	}
	return account, true, nil
}

func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
