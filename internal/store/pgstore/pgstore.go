// Package pgstore keeps grocery items in PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/idilsaglam/grocery/internal/model"
	"github.com/idilsaglam/grocery/internal/retry"
	"github.com/idilsaglam/grocery/internal/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	table        = "grocery_items"
	queryTimeout = 5 * time.Second
)

var (
	psql    = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	columns = []string{"id", "name", "quantity", "is_checked"}
)

type Options struct {
	MigrationsPath string
	ConnectRetries int
	Logger         *zap.Logger
}

type Store struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger

	store.Broadcaster
}

var _ store.Store = (*Store)(nil)

// Open connects with retries on connection-class errors, then runs migrations.
func Open(ctx context.Context, dsn string, opt Options) (*Store, error) {
	logger := opt.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	policy := retry.Policy{
		MaxRetries:  opt.ConnectRetries,
		Backoff:     retry.NewBackoff(500*time.Millisecond, 5*time.Second, true),
		ShouldRetry: isRetriable,
	}
	onRetry := func(err error, attempt int, wait time.Duration) {
		logger.Warn("database not ready, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
		)
	}

	var pool *pgxpool.Pool
	err := retry.Do(ctx, policy, func() error {
		p, err := pgxpool.New(ctx, dsn)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	}, onRetry)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to PostgreSQL")

	if err := retry.Do(ctx, policy, func() error {
		return RunMigrations(dsn, opt.MigrationsPath, logger)
	}, onRetry); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool:   pool,
		tracer: otel.Tracer("pgstore"),
		logger: logger,
	}, nil
}

func (s *Store) All(ctx context.Context) ([]model.GroceryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "pgstore.All")
	defer span.End()

	query, args, err := selectAll().ToSql()
	if err != nil {
		return nil, store.Fail("all", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, store.Fail("all", fmt.Errorf("query items: %w", err))
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.GroceryItem, error) {
		return scanItem(row)
	})
	if err != nil {
		span.RecordError(err)
		return nil, store.Fail("all", fmt.Errorf("scan items: %w", err))
	}
	span.SetAttributes(attribute.Int("items.count", len(items)))
	return items, nil
}

func (s *Store) Insert(ctx context.Context, item model.GroceryItem) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "pgstore.Insert")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", item.ID))

	query, args, err := psql.Insert(table).
		Columns(columns...).
		Values(item.ID, item.Name, item.Quantity, item.IsChecked).
		ToSql()
	if err != nil {
		return store.Fail("insert", err)
	}
	return s.Commit(func() (store.Change, bool, error) {
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			span.RecordError(err)
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return store.Change{}, false, fmt.Errorf("insert %s: %w", item.ID, store.ErrDuplicateID)
			}
			return store.Change{}, false, store.Fail("insert", fmt.Errorf("insert item: %w", err))
		}
		return store.Change{Kind: store.Inserted, Item: item}, true, nil
	})
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) (model.GroceryItem, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "pgstore.Update")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", id))

	query, args, err := buildUpdate(id, p).ToSql()
	if err != nil {
		return model.GroceryItem{}, store.Fail("update", err)
	}
	var it model.GroceryItem
	err = s.Commit(func() (store.Change, bool, error) {
		var err error
		it, err = scanItem(s.pool.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				span.SetAttributes(attribute.Bool("not_found", true))
				return store.Change{}, false, fmt.Errorf("update %s: %w", id, store.ErrNotFound)
			}
			span.RecordError(err)
			return store.Change{}, false, store.Fail("update", fmt.Errorf("update item: %w", err))
		}
		return store.Change{Kind: store.Updated, Item: it}, !p.Empty(), nil
	})
	if err != nil {
		return model.GroceryItem{}, err
	}
	return it, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	ctx, span := s.tracer.Start(ctx, "pgstore.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("item.id", id))

	query, args, err := psql.Delete(table).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, quantity, is_checked").
		ToSql()
	if err != nil {
		return store.Fail("delete", err)
	}
	return s.Commit(func() (store.Change, bool, error) {
		it, err := scanItem(s.pool.QueryRow(ctx, query, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return store.Change{}, false, nil
			}
			span.RecordError(err)
			return store.Change{}, false, store.Fail("delete", fmt.Errorf("delete item: %w", err))
		}
		return store.Change{Kind: store.Deleted, Item: it}, true, nil
	})
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func selectAll() sq.SelectBuilder {
	return psql.Select(columns...).From(table).OrderBy(`name COLLATE "C"`, "seq")
}

// buildUpdate returns a statement yielding the item after the patch. An empty
// patch degrades to a plain select so missing ids still report not found.
func buildUpdate(id string, p model.Patch) sq.Sqlizer {
	if p.Empty() {
		return psql.Select(columns...).From(table).Where(sq.Eq{"id": id})
	}
	set := map[string]any{"updated_at": sq.Expr("now()")}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Quantity != nil {
		set["quantity"] = *p.Quantity
	}
	switch {
	case p.IsChecked != nil && p.ToggleChecked:
		set["is_checked"] = !*p.IsChecked
	case p.IsChecked != nil:
		set["is_checked"] = *p.IsChecked
	case p.ToggleChecked:
		set["is_checked"] = sq.Expr("NOT is_checked")
	}
	return psql.Update(table).
		SetMap(set).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING id, name, quantity, is_checked")
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (model.GroceryItem, error) {
	var it model.GroceryItem
	err := row.Scan(&it.ID, &it.Name, &it.Quantity, &it.IsChecked)
	return it, err
}

// isRetriable matches connection failures and SQLSTATE class 08.
func isRetriable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return len(pgErr.Code) >= 2 && pgErr.Code[:2] == "08"
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}
