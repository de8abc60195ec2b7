package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // pure Go sqlite driver

	"github.com/jnst/event-sourcing-pattern/internal/model"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS product (
		id INTEGER PRIMARY KEY AUTOINCREMENT
	)`,
	`CREATE TABLE IF NOT EXISTS outlet (
		id INTEGER PRIMARY KEY AUTOINCREMENT
	)`,
	`CREATE TABLE IF NOT EXISTS event_product_invented (
		id INT,
		name TEXT,
		date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS event_product_priced (
		product INT,
		cents INT,
		date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS event_outlet_opened (
		id INT,
		name TEXT,
		date TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS event_outlet_stocked (
		outlet INT,
		servings INT,
		product INT,
		date TEXT
	)`,
}

// OpenSQLite opens a SQLite database at path (":memory:" for an in-memory
// database).
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// The store is single-threaded and an in-memory database exists per
	// connection, so the pool must hold exactly one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	return db, nil
}

// SQLiteEventStore implements EventStore using SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// NewSQLiteEventStore creates a new SQLite-backed EventStore.
func NewSQLiteEventStore(db *sql.DB) *SQLiteEventStore {
	return &SQLiteEventStore{db: db}
}

// CreateSchema creates the event log and identifier tables if they do not exist.
func (s *SQLiteEventStore) CreateSchema(ctx context.Context) error {
	for _, ddl := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// Append stores events one row per event, dispatching on variant.
func (s *SQLiteEventStore) Append(ctx context.Context, events []model.Event) error {
	for _, event := range events {
		if err := s.appendOne(ctx, event); err != nil {
			return err
		}
	}

	return nil
}

func (s *SQLiteEventStore) appendOne(ctx context.Context, event model.Event) error {
	date := event.OccurredAt().Format(model.DateFormat)

	switch e := event.(type) {
	case model.ProductInvented:
		id, err := s.newProductID(ctx)
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO event_product_invented (id, name, date) VALUES (?, ?, ?)`,
			id, e.Name(), date,
		); err != nil {
			return fmt.Errorf("failed to store product invented event: %w", err)
		}
	case model.ProductPriced:
		product, err := s.ProductID(ctx, e.Product())
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO event_product_priced (product, cents, date) VALUES (?, ?, ?)`,
			product, e.Cents(), date,
		); err != nil {
			return fmt.Errorf("failed to store product priced event: %w", err)
		}
	case model.OutletOpened:
		id, err := s.newOutletID(ctx)
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO event_outlet_opened (id, name, date) VALUES (?, ?, ?)`,
			id, e.Name(), date,
		); err != nil {
			return fmt.Errorf("failed to store outlet opened event: %w", err)
		}
	case model.OutletStocked:
		outlet, err := s.OutletID(ctx, e.Outlet())
		if err != nil {
			return err
		}

		product, err := s.ProductID(ctx, e.Product())
		if err != nil {
			return err
		}

		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO event_outlet_stocked (outlet, servings, product, date) VALUES (?, ?, ?, ?)`,
			outlet, e.Servings(), product, date,
		); err != nil {
			return fmt.Errorf("failed to store outlet stocked event: %w", err)
		}
	default:
		return fmt.Errorf("unknown event kind: %s", event.Kind())
	}

	return nil
}

// FetchAll reads all four logs and returns the events in chronological order.
func (s *SQLiteEventStore) FetchAll(ctx context.Context) ([]model.Event, error) {
	var events []model.Event

	invented, err := s.fetchProductInvented(ctx)
	if err != nil {
		return nil, err
	}
	events = append(events, invented...)

	priced, err := s.fetchProductPriced(ctx)
	if err != nil {
		return nil, err
	}
	events = append(events, priced...)

	opened, err := s.fetchOutletOpened(ctx)
	if err != nil {
		return nil, err
	}
	events = append(events, opened...)

	stocked, err := s.fetchOutletStocked(ctx)
	if err != nil {
		return nil, err
	}
	events = append(events, stocked...)

	sortByOccurrence(events)

	return events, nil
}

func (s *SQLiteEventStore) fetchProductInvented(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, date FROM event_product_invented`)
	if err != nil {
		return nil, fmt.Errorf("failed to read product invented log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event

	for rows.Next() {
		var name, date string
		if err := rows.Scan(&name, &date); err != nil {
			return nil, fmt.Errorf("failed to scan product invented row: %w", err)
		}

		event, err := model.ProductInventedFromStored(name, date)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product invented log: %w", err)
	}

	return events, nil
}

func (s *SQLiteEventStore) fetchProductPriced(ctx context.Context) ([]model.Event, error) {
	type stored struct {
		product int64
		cents   int64
		date    string
	}

	rows, err := s.db.QueryContext(ctx, `SELECT product, cents, date FROM event_product_priced`)
	if err != nil {
		return nil, fmt.Errorf("failed to read product priced log: %w", err)
	}

	var records []stored

	for rows.Next() {
		var rec stored
		if err := rows.Scan(&rec.product, &rec.cents, &rec.date); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan product priced row: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read product priced log: %w", err)
	}

	// Release the connection before resolving identifiers: the pool is capped
	// at one connection and open rows hold it.
	_ = rows.Close()

	var events []model.Event

	for _, rec := range records {
		event, err := model.ProductPricedFromStored(ctx, s, rec.product, rec.cents, rec.date)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

func (s *SQLiteEventStore) fetchOutletOpened(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, date FROM event_outlet_opened`)
	if err != nil {
		return nil, fmt.Errorf("failed to read outlet opened log: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event

	for rows.Next() {
		var name, date string
		if err := rows.Scan(&name, &date); err != nil {
			return nil, fmt.Errorf("failed to scan outlet opened row: %w", err)
		}

		event, err := model.OutletOpenedFromStored(name, date)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read outlet opened log: %w", err)
	}

	return events, nil
}

func (s *SQLiteEventStore) fetchOutletStocked(ctx context.Context) ([]model.Event, error) {
	type stored struct {
		outlet   int64
		servings int64
		product  int64
		date     string
	}

	rows, err := s.db.QueryContext(ctx, `SELECT outlet, servings, product, date FROM event_outlet_stocked`)
	if err != nil {
		return nil, fmt.Errorf("failed to read outlet stocked log: %w", err)
	}

	var records []stored

	for rows.Next() {
		var rec stored
		if err := rows.Scan(&rec.outlet, &rec.servings, &rec.product, &rec.date); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan outlet stocked row: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("failed to read outlet stocked log: %w", err)
	}

	_ = rows.Close()

	var events []model.Event

	for _, rec := range records {
		event, err := model.OutletStockedFromStored(ctx, s, rec.outlet, rec.servings, rec.product, rec.date)
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

func (s *SQLiteEventStore) newProductID(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO product DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate product id: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read allocated product id: %w", err)
	}

	return id, nil
}

func (s *SQLiteEventStore) newOutletID(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO outlet DEFAULT VALUES`)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate outlet id: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read allocated outlet id: %w", err)
	}

	return id, nil
}

// ProductID resolves a product name to its store-assigned identifier.
func (s *SQLiteEventStore) ProductID(ctx context.Context, name string) (int64, error) {
	var id int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM event_product_invented WHERE name = ?`, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrProductNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve product %q: %w", name, err)
	}

	return id, nil
}

// OutletID resolves an outlet name to its store-assigned identifier.
func (s *SQLiteEventStore) OutletID(ctx context.Context, name string) (int64, error) {
	var id int64

	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM event_outlet_opened WHERE name = ?`, name,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, model.ErrOutletNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to resolve outlet %q: %w", name, err)
	}

	return id, nil
}

// ProductName resolves a product identifier back to its name.
func (s *SQLiteEventStore) ProductName(ctx context.Context, id int64) (string, error) {
	var name string

	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM event_product_invented WHERE id = ?`, id,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrProductNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve product id %d: %w", id, err)
	}

	return name, nil
}

// OutletName resolves an outlet identifier back to its name.
func (s *SQLiteEventStore) OutletName(ctx context.Context, id int64) (string, error) {
	var name string

	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM event_outlet_opened WHERE id = ?`, id,
	).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", model.ErrOutletNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve outlet id %d: %w", id, err)
	}

	return name, nil
}
