// Package pgstore reads storefront collections straight from the shop database.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maison-parfum/maison/internal/analytics"
	"github.com/maison-parfum/maison/internal/platform/db"
	"github.com/maison-parfum/maison/internal/storefront"
)

//go:embed schema.sql
var schemaSQL string

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store implements analytics.Source on top of PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps a connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the shop tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("pgstore: ensure schema: %w", err)
	}
	return nil
}

// Snapshot reads every collection inside one read-only repeatable-read
// transaction so the dashboard sees a consistent view.
func (s *Store) Snapshot(ctx context.Context) (analytics.Input, error) {
	var in analytics.Input
	err := db.WithReadSnapshot(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		if in.Orders, err = queryOrders(ctx, tx, false); err != nil {
			return err
		}
		if in.ReportOrders, err = queryOrders(ctx, tx, true); err != nil {
			return err
		}
		if in.Users, err = queryUsers(ctx, tx); err != nil {
			return err
		}
		if in.Products, err = queryProducts(ctx, tx); err != nil {
			return err
		}
		in.AbandonedCarts, err = queryCarts(ctx, tx)
		return err
	})
	return in, err
}

// Orders lists orders with their summary lines.
func (s *Store) Orders(ctx context.Context) ([]storefront.Order, error) {
	return queryOrders(ctx, s.pool, false)
}

// ReportOrders lists orders with cost-bearing detail lines.
func (s *Store) ReportOrders(ctx context.Context) ([]storefront.Order, error) {
	return queryOrders(ctx, s.pool, true)
}

// Users lists customer accounts.
func (s *Store) Users(ctx context.Context) ([]storefront.User, error) {
	return queryUsers(ctx, s.pool)
}

// Products lists the catalog with variants.
func (s *Store) Products(ctx context.Context) ([]storefront.Product, error) {
	return queryProducts(ctx, s.pool)
}

// AbandonedCarts lists cart lines joined with owner and variant.
func (s *Store) AbandonedCarts(ctx context.Context) ([]storefront.AbandonedCartItem, error) {
	return queryCarts(ctx, s.pool)
}
