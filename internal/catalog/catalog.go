// Package catalog reads the product catalog from PostgreSQL.
//
// The extractor materializes the full products table in memory; the catalog
// is small enough that filtering and pagination buy nothing, and the sync
// pipeline wants every row anyway.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

var (
	// ErrUnreachable indicates the relational store could not be reached.
	// Retryable with backoff.
	ErrUnreachable = errors.New("catalog store unreachable")

	// ErrSchema indicates the products table is missing expected columns.
	// Fatal: requires operator intervention.
	ErrSchema = errors.New("catalog schema mismatch")
)

// Product is one row of the products table. ProductID uniquely determines
// a record in both the relational store and the vector index.
type Product struct {
	ID          int64
	Name        string
	Brand       string
	Gender      string
	Price       float64
	Color       string
	Description string
}

// Querier is the subset of pgxpool.Pool the store needs.
// Defined by the consumer for testability.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store reads products from the relational store.
type Store struct {
	db     Querier
	logger *slog.Logger
}

// New creates a catalog store. A nil logger falls back to slog.Default().
func New(db Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// fetchAllSQL names every column explicitly so a schema drift surfaces as a
// query error here instead of a scan error later.
const fetchAllSQL = `
SELECT product_id, product_name, product_brand, gender, price, primary_color, description
FROM products`

// FetchAll reads every row of the products table into memory.
// It returns ErrUnreachable when the store cannot be reached and ErrSchema
// when the expected columns are absent.
func (s *Store) FetchAll(ctx context.Context) ([]Product, error) {
	rows, err := s.db.Query(ctx, fetchAllSQL)
	if err != nil {
		return nil, classifyQueryError(err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Gender, &p.Price, &p.Color, &p.Description); err != nil {
			return nil, fmt.Errorf("%w: scanning product row: %v", ErrSchema, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyQueryError(err)
	}

	s.logger.Debug("fetched catalog", "products", len(products))
	return products, nil
}

// classifyQueryError maps driver errors onto the package sentinels.
// Undefined-table and undefined-column errors are schema problems; anything
// else from the driver is treated as a connectivity failure.
func classifyQueryError(err error) error {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		switch pgErr.SQLState() {
		case "42P01", "42703": // undefined_table, undefined_column
			return fmt.Errorf("%w: %v", ErrSchema, err)
		}
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}
