package barstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/trendline/market"
)

// SQLite persists series in a local database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("bar store schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, key Key) ([]market.Bar, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT bars FROM series WHERE symbol = ? AND period = ?`,
		key.Symbol, string(key.Period),
	).Scan(&n)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, open, high, low, close, volume, ma20
		FROM bars
		WHERE symbol = ? AND period = ?
		ORDER BY date`,
		key.Symbol, string(key.Period),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bars := make([]market.Bar, 0, n)
	for rows.Next() {
		var (
			b    market.Bar
			date string
			ma   sql.NullFloat64
		)
		if err := rows.Scan(&date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &ma); err != nil {
			return nil, err
		}
		if b.Date, err = time.Parse(market.DateLayout, date); err != nil {
			return nil, fmt.Errorf("bar store: bad date %q: %w", date, err)
		}
		if ma.Valid {
			b.MA20 = market.Float(ma.Float64)
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *SQLite) Put(ctx context.Context, key Key, bars []market.Bar) (err error) {
	if err := key.validate(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO series (symbol, period, bars, created)
		VALUES (?, ?, ?, ?)`,
		key.Symbol, string(key.Period), len(bars), time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("%w: %s", ErrExists, key)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO bars (symbol, period, date, open, high, low, close, volume, ma20)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, b := range bars {
		var ma any
		if b.MA20 != nil {
			ma = *b.MA20
		}
		if _, err = stmt.ExecContext(ctx,
			key.Symbol, string(key.Period), b.Day(),
			b.Open, b.High, b.Low, b.Close, b.Volume, ma,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLite) Keys(ctx context.Context) ([]Key, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, period FROM series`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []Key
	for rows.Next() {
		var k Key
		var p string
		if err := rows.Scan(&k.Symbol, &p); err != nil {
			return nil, err
		}
		k.Period = market.Period(p)
		keys = append(keys, k)
	}
	sortKeys(keys)
	return keys, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
