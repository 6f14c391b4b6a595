/*
Package sqlite provides SQLite-backed persistence for models and transactions.

PURPOSE:
  Stores transaction models (with their computed contribution chains) and
  observed transactions. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  models:       Transaction models: matcher, value, rule and the contribution
                chain as computed on calculation_date
  transactions: Observed, real-world transactions

ENCODING:
  Monetary values and rates are stored as decimal strings, never floats;
  dates as ISO YYYY-MM-DD strings. The recurrence rule and the segment
  chains are stored as JSON blobs - the chain is derived data, persisted so
  reads need no recomputation, and reproducible from (value, rule, window,
  calculation_date) at any time.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/savings.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  err = store.SaveModel(ctx, model)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - budget/model.go: the Model and Transaction types persisted here
  - factory/rule.go: the rule JSON encoding reused for the rule column
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/fernbank/savings-engine/budget"
	"github.com/fernbank/savings-engine/factory"
	"github.com/fernbank/savings-engine/schedule"
)

var (
	// ErrModelNotFound is returned when no model exists with the given id.
	ErrModelNotFound = errors.New("model not found")

	// ErrTransactionNotFound is returned when no transaction exists with the
	// given id.
	ErrTransactionNotFound = errors.New("transaction not found")
)

// Store persists models and observed transactions in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transaction models and their computed contribution chains
	CREATE TABLE IF NOT EXISTS models (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		descriptions_json TEXT NOT NULL DEFAULT '[]',
		value_lower TEXT NOT NULL,
		value_upper TEXT NOT NULL,
		variable BOOLEAN NOT NULL DEFAULT FALSE,
		rule_json TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		calculation_date TEXT NOT NULL,
		segments_json TEXT NOT NULL,
		ameliorations_json TEXT NOT NULL DEFAULT '[]',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_models_category ON models(category);

	-- Observed, real-world transactions
	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		amount TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date);
	CREATE INDEX IF NOT EXISTS idx_transactions_category ON transactions(category);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// MODEL STORE
// =============================================================================

// SaveModel inserts the model, or updates it when it already has an id. On
// insert the assigned id is written back to the model.
func (s *Store) SaveModel(ctx context.Context, m *budget.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ruleJSON, err := factory.EncodeRule(m.Rule)
	if err != nil {
		return fmt.Errorf("failed to encode rule: %w", err)
	}
	descriptionsJSON, err := json.Marshal(m.Matcher.Descriptions)
	if err != nil {
		return fmt.Errorf("failed to encode matcher: %w", err)
	}
	segmentsJSON, err := encodeSegments(m.Segments)
	if err != nil {
		return err
	}
	ameliorationsJSON, err := encodeSegments(m.Ameliorations)
	if err != nil {
		return err
	}

	lower, upper := m.Value.Bounds()
	now := time.Now().UTC().Format(time.RFC3339)

	if m.ID == 0 {
		query := `
			INSERT INTO models
			(name, category, descriptions_json, value_lower, value_upper, variable,
			 rule_json, start_date, end_date, calculation_date, segments_json,
			 ameliorations_json, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		res, err := s.db.ExecContext(ctx, query,
			m.Name, m.Matcher.Category, string(descriptionsJSON),
			lower.String(), upper.String(), m.Value.IsVariable(),
			string(ruleJSON), m.Start.String(), nullDate(m.End),
			m.CalculationDate.String(), segmentsJSON, ameliorationsJSON,
			now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert model: %w", err)
		}
		m.ID, err = res.LastInsertId()
		return err
	}

	query := `
		UPDATE models SET
			name = ?, category = ?, descriptions_json = ?,
			value_lower = ?, value_upper = ?, variable = ?,
			rule_json = ?, start_date = ?, end_date = ?,
			calculation_date = ?, segments_json = ?, ameliorations_json = ?,
			updated_at = ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query,
		m.Name, m.Matcher.Category, string(descriptionsJSON),
		lower.String(), upper.String(), m.Value.IsVariable(),
		string(ruleJSON), m.Start.String(), nullDate(m.End),
		m.CalculationDate.String(), segmentsJSON, ameliorationsJSON,
		now, m.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update model: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrModelNotFound
	}
	return nil
}

// GetModel retrieves a model by id.
func (s *Store) GetModel(ctx context.Context, id int64) (*budget.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, modelColumns+" FROM models WHERE id = ?", id)
	m, err := scanModel(row)
	if err == sql.ErrNoRows {
		return nil, ErrModelNotFound
	}
	return m, err
}

// ListModels returns all models ordered by name.
func (s *Store) ListModels(ctx context.Context) ([]*budget.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, modelColumns+" FROM models ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query models: %w", err)
	}
	defer rows.Close()

	var models []*budget.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

// DeleteModel removes a model.
func (s *Store) DeleteModel(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM models WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrModelNotFound
	}
	return nil
}

const modelColumns = `
	SELECT id, name, category, descriptions_json, value_lower, value_upper,
	       variable, rule_json, start_date, end_date, calculation_date,
	       segments_json, ameliorations_json`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModel(row rowScanner) (*budget.Model, error) {
	var (
		m                budget.Model
		descriptionsJSON string
		lower, upper     string
		variable         bool
		ruleJSON         string
		startDate        string
		endDate          sql.NullString
		calculationDate  string
		segmentsJSON     string
		amelJSON         string
	)

	err := row.Scan(
		&m.ID, &m.Name, &m.Matcher.Category, &descriptionsJSON,
		&lower, &upper, &variable, &ruleJSON, &startDate, &endDate,
		&calculationDate, &segmentsJSON, &amelJSON,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan model: %w", err)
	}

	if err := json.Unmarshal([]byte(descriptionsJSON), &m.Matcher.Descriptions); err != nil {
		return nil, fmt.Errorf("failed to decode matcher: %w", err)
	}
	m.Value, err = decodeValue(lower, upper, variable)
	if err != nil {
		return nil, err
	}
	m.Rule, err = factory.ParseRule([]byte(ruleJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule: %w", err)
	}
	m.Start, err = schedule.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode start date: %w", err)
	}
	if endDate.Valid {
		end, err := schedule.ParseDate(endDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to decode end date: %w", err)
		}
		m.End = &end
	}
	m.CalculationDate, err = schedule.ParseDate(calculationDate)
	if err != nil {
		return nil, fmt.Errorf("failed to decode calculation date: %w", err)
	}
	m.Segments, err = decodeSegments(segmentsJSON)
	if err != nil {
		return nil, err
	}
	m.Ameliorations, err = decodeSegments(amelJSON)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func decodeValue(lower, upper string, variable bool) (budget.Value, error) {
	lo, err := decimal.NewFromString(lower)
	if err != nil {
		return budget.Value{}, fmt.Errorf("failed to decode value: %w", err)
	}
	if !variable {
		return budget.FixedValue(lo), nil
	}
	up, err := decimal.NewFromString(upper)
	if err != nil {
		return budget.Value{}, fmt.Errorf("failed to decode value: %w", err)
	}
	return budget.VariableValue(lo, up), nil
}

// =============================================================================
// SEGMENT ENCODING
// =============================================================================

// segmentJSON is the storage form of one contribution segment.
type segmentJSON struct {
	Regular    string  `json:"regular"`
	Last       *string `json:"last,omitempty"`
	Start      string  `json:"start"`
	End        *string `json:"end,omitempty"`
	PeriodDays int     `json:"period_days"`
}

func encodeSegments(segments []schedule.Contribution) (string, error) {
	out := make([]segmentJSON, 0, len(segments))
	for _, c := range segments {
		sj := segmentJSON{
			Regular:    c.Regular.String(),
			Start:      c.Start.String(),
			PeriodDays: c.PeriodDays,
		}
		if c.Last != nil {
			last := c.Last.String()
			sj.Last = &last
		}
		if c.End != nil {
			end := c.End.String()
			sj.End = &end
		}
		out = append(out, sj)
	}
	blob, err := json.Marshal(out)
	if err != nil {
		return "", fmt.Errorf("failed to encode segments: %w", err)
	}
	return string(blob), nil
}

func decodeSegments(blob string) ([]schedule.Contribution, error) {
	var in []segmentJSON
	if err := json.Unmarshal([]byte(blob), &in); err != nil {
		return nil, fmt.Errorf("failed to decode segments: %w", err)
	}

	var segments []schedule.Contribution
	for _, sj := range in {
		c := schedule.Contribution{PeriodDays: sj.PeriodDays}
		var err error
		c.Regular, err = decimal.NewFromString(sj.Regular)
		if err != nil {
			return nil, fmt.Errorf("failed to decode segment rate: %w", err)
		}
		if sj.Last != nil {
			last, err := decimal.NewFromString(*sj.Last)
			if err != nil {
				return nil, fmt.Errorf("failed to decode segment rate: %w", err)
			}
			c.Last = &last
		}
		c.Start, err = schedule.ParseDate(sj.Start)
		if err != nil {
			return nil, fmt.Errorf("failed to decode segment start: %w", err)
		}
		if sj.End != nil {
			end, err := schedule.ParseDate(*sj.End)
			if err != nil {
				return nil, fmt.Errorf("failed to decode segment end: %w", err)
			}
			c.End = &end
		}
		segments = append(segments, c)
	}
	return segments, nil
}

// =============================================================================
// TRANSACTION STORE
// =============================================================================

// SaveTransaction inserts an observed transaction, writing the assigned id
// back to it.
func (s *Store) SaveTransaction(ctx context.Context, tx *budget.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (amount, category, description, date, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		tx.Amount.String(), tx.Category, tx.Description, tx.Date.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	tx.ID, err = res.LastInsertId()
	return err
}

// ListTransactions returns all observed transactions in date order.
func (s *Store) ListTransactions(ctx context.Context) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		"SELECT id, amount, category, description, date FROM transactions ORDER BY date, id")
}

// ListTransactionsRange returns observed transactions with dates in
// [from, to], in date order.
func (s *Store) ListTransactionsRange(ctx context.Context, from, to schedule.Date) ([]budget.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTransactions(ctx,
		`SELECT id, amount, category, description, date FROM transactions
		 WHERE date >= ? AND date <= ? ORDER BY date, id`,
		from.String(), to.String())
}

// DeleteTransaction removes an observed transaction.
func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]budget.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []budget.Transaction
	for rows.Next() {
		var (
			tx     budget.Transaction
			amount string
			date   string
		)
		if err := rows.Scan(&tx.ID, &amount, &tx.Category, &tx.Description, &date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("failed to decode amount: %w", err)
		}
		tx.Date, err = schedule.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("failed to decode date: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"models", "transactions"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullDate(d *schedule.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
