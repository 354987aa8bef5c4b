package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gogotex/docbase/internal/fault"
	"github.com/gogotex/docbase/internal/identity"
	"github.com/mattn/go-sqlite3"
)

// sqliteBackend stores every record in one table keyed by address.
//
//	records(address, data, parent)  PRIMARY KEY (address)
//
// data is the fixed record layout; parent is set for documents only.
// Transactions begin IMMEDIATE so the read checks and the writes of a commit
// hold the write lock together.
type sqliteBackend struct {
	db *sql.DB
}

// NewSqliteRepo opens (creating if needed) the database at dbPath.
func NewSqliteRepo(dbPath string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		address BLOB PRIMARY KEY,
		data BLOB NOT NULL,
		parent BLOB
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Repo{name: "sqlite", b: &sqliteBackend{db: db}}, nil
}

func (s *sqliteBackend) close() error {
	return s.db.Close()
}

// rowQuerier is satisfied by *sql.DB and *sql.Tx.
type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *sqliteBackend) load(ctx context.Context, addr identity.Key) (*Record, error) {
	return sqliteLoad(ctx, s.db, addr)
}

func sqliteLoad(ctx context.Context, q rowQuerier, addr identity.Key) (*Record, error) {
	var data, parent []byte
	err := q.QueryRowContext(ctx,
		"SELECT data, parent FROM records WHERE address = ?", addr[:],
	).Scan(&data, &parent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecord(addr, data, parent)
}

func (s *sqliteBackend) commit(ctx context.Context, reads []read, changes []change) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rd := range reads {
		cur, err := sqliteLoad(ctx, tx, rd.addr)
		if err != nil {
			return err
		}
		if !sameRecord(cur, rd.rec) {
			return errStale
		}
	}

	for _, c := range changes {
		addr := c.rec.Address
		switch c.op {
		case opDelete:
			if _, err := tx.ExecContext(ctx, "DELETE FROM records WHERE address = ?", addr[:]); err != nil {
				return fmt.Errorf("sqlite delete: %w", err)
			}
		case opCreate, opPut:
			data, err := c.rec.encode()
			if err != nil {
				return err
			}
			var parent []byte
			if c.rec.Document != nil {
				parent = c.rec.Document.Collection.Bytes()
			}
			q := "INSERT INTO records (address, data, parent) VALUES (?, ?, ?)"
			if c.op == opPut {
				q += " ON CONFLICT(address) DO UPDATE SET data = excluded.data, parent = excluded.parent"
			}
			if _, err := tx.ExecContext(ctx, q, addr[:], data, parent); err != nil {
				var se sqlite3.Error
				if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
					return fault.ErrRecordExists
				}
				return fmt.Errorf("sqlite write: %w", err)
			}
		}
	}
	return tx.Commit()
}
