package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/indicator"
	"github.com/jakejk1285/quantconnect-volatility-arbitrage/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for backtest replay and
// snapshot restore.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadBars reads stored bars for one symbol after a given timestamp,
// ordered by timestamp ascending for correct replay order.
func (r *Reader) ReadBars(symbol string, afterTS int64) ([]model.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, asset_class, ts, price, volume
		FROM bars_1d
		WHERE symbol = ? AND ts > ?
		ORDER BY ts ASC
	`, symbol, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query bars: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

// ReadAllBars reads every stored bar after a given timestamp across all
// symbols, ordered by timestamp then symbol so replay can group bars of the
// same bar-time into one batch.
func (r *Reader) ReadAllBars(afterTS int64) ([]model.Bar, error) {
	rows, err := r.db.Query(`
		SELECT symbol, asset_class, ts, price, volume
		FROM bars_1d
		WHERE ts > ?
		ORDER BY ts ASC, symbol ASC
	`, afterTS)
	if err != nil {
		return nil, fmt.Errorf("sqlite query all bars: %w", err)
	}
	defer rows.Close()
	return scanBars(rows)
}

func scanBars(rows *sql.Rows) ([]model.Bar, error) {
	var bars []model.Bar
	for rows.Next() {
		var b model.Bar
		var class string
		var tsUnix int64
		if err := rows.Scan(&b.Symbol, &class, &tsUnix, &b.Price, &b.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan bar: %w", err)
		}
		b.AssetClass = model.AssetClass(class)
		b.TS = time.Unix(tsUnix, 0).UTC()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

// ReadLatestSnapshot loads the most recent indicator bank snapshot.
// Returns nil without error when no snapshot has been saved.
func (r *Reader) ReadLatestSnapshot() (*indicator.BankSnapshot, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT data FROM indicator_snapshots
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // no snapshot
		}
		return nil, fmt.Errorf("sqlite read snapshot: %w", err)
	}

	return indicator.UnmarshalBankSnapshot([]byte(data))
}

// IntentRecord represents a row from the intents table.
type IntentRecord struct {
	ID             int64   `json:"id"`
	Symbol         string  `json:"symbol"`
	Action         string  `json:"action"`
	TargetFraction float64 `json:"target_fraction"`
	Price          float64 `json:"price"`
	Reason         string  `json:"reason"`
	TS             string  `json:"ts"`
}

// ReadIntents returns the last N journaled intents, newest first.
func (r *Reader) ReadIntents(limit int) ([]IntentRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, symbol, action, target_fraction, price, reason, ts
		FROM intents ORDER BY id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query intents: %w", err)
	}
	defer rows.Close()

	var records []IntentRecord
	for rows.Next() {
		var rec IntentRecord
		if err := rows.Scan(&rec.ID, &rec.Symbol, &rec.Action, &rec.TargetFraction,
			&rec.Price, &rec.Reason, &rec.TS); err != nil {
			return nil, fmt.Errorf("sqlite scan intent: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}
