// Package postgres provides a PostgreSQL transport.RunStore built on pgx/v5.
// Status and error objects are stored as JSONB.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rhuss/judgeide/pkg/api"
	"github.com/rhuss/judgeide/pkg/history"
	"github.com/rhuss/judgeide/pkg/judge0"
	"github.com/rhuss/judgeide/pkg/transport"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	runColumns = `id, tenant_id, state, language_id, flavor, source_code, stdin,
		token, status, output, time, memory, turnaround_ms, status_line, error, created_at`
)

// Store is a PostgreSQL-backed RunStore.
type Store struct {
	pool *pgxpool.Pool
}

var _ transport.RunStore = (*Store)(nil)

// New connects to PostgreSQL and, if cfg.MigrateOnStart is set, applies the
// schema migrations.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}
	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}
	return s, nil
}

// SaveRun inserts a finished run under the context's tenant.
func (s *Store) SaveRun(ctx context.Context, run *api.Run) error {
	tenantID := history.TenantFrom(ctx)

	statusJSON, err := marshalOptional(run.Status)
	if err != nil {
		return fmt.Errorf("marshaling status: %w", err)
	}
	errorJSON, err := marshalOptional(run.Error)
	if err != nil {
		return fmt.Errorf("marshaling error: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`,
		run.ID, tenantID, string(run.State), run.LanguageID, run.Flavor.String(), run.SourceCode, run.Stdin,
		run.Token, statusJSON, run.Output, run.Time, run.Memory, run.TurnaroundMS, run.StatusLine, errorJSON,
		run.CreatedAt,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return history.ErrConflict
		}
		return fmt.Errorf("inserting run: %w", err)
	}
	run.Tenant = tenantID
	return nil
}

// GetRun retrieves a run by ID within the context's tenant.
func (s *Store) GetRun(ctx context.Context, id string) (*api.Run, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE id = $1"
	args := []any{id}
	if tenantID := history.TenantFrom(ctx); tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	run, err := scanRun(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, history.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return run, nil
}

// DeleteRun removes a run by ID within the context's tenant.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	query := "DELETE FROM runs WHERE id = $1"
	args := []any{id}
	if tenantID := history.TenantFrom(ctx); tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return history.ErrNotFound
	}
	return nil
}

// ListRuns returns one page of runs. An unknown cursor yields an empty page.
func (s *Store) ListRuns(ctx context.Context, opts transport.ListOptions) (*api.RunList, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if tenantID := history.TenantFrom(ctx); tenantID != "" {
		where = append(where, "tenant_id = "+arg(tenantID))
	}
	if opts.LanguageID != 0 {
		where = append(where, "language_id = "+arg(opts.LanguageID))
	}
	if opts.Flavor != "" {
		where = append(where, "flavor = "+arg(opts.Flavor))
	}

	asc := opts.Order == "asc"
	cursor, forward := opts.After, true
	if cursor == "" && opts.Before != "" {
		cursor, forward = opts.Before, false
	}
	if cursor != "" {
		// Past the cursor in list order for after, ahead of it for before.
		op := "<"
		if asc == forward {
			op = ">"
		}
		where = append(where, fmt.Sprintf("(created_at, id) %s (SELECT created_at, id FROM runs WHERE id = %s)", op, arg(cursor)))
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	query := "SELECT " + runColumns + " FROM runs"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if asc {
		query += " ORDER BY created_at ASC, id ASC"
	} else {
		query += " ORDER BY created_at DESC, id DESC"
	}
	query += " LIMIT " + arg(limit+1)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	runs := []*api.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	result := &api.RunList{Object: "list", HasMore: len(runs) > limit}
	if result.HasMore {
		runs = runs[:limit]
	}
	result.Data = runs
	if len(runs) > 0 {
		result.FirstID = runs[0].ID
		result.LastID = runs[len(runs)-1].ID
	}
	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanRun(row pgx.Row) (*api.Run, error) {
	var (
		run                   api.Run
		state, flavor         string
		statusJSON, errorJSON []byte
	)
	if err := row.Scan(
		&run.ID, &run.Tenant, &state, &run.LanguageID, &flavor, &run.SourceCode, &run.Stdin,
		&run.Token, &statusJSON, &run.Output, &run.Time, &run.Memory, &run.TurnaroundMS, &run.StatusLine, &errorJSON,
		&run.CreatedAt,
	); err != nil {
		return nil, err
	}

	run.Object = "run"
	run.State = api.RunState(state)
	f, err := judge0.ParseFlavor(flavor)
	if err != nil {
		return nil, err
	}
	run.Flavor = f

	if statusJSON != nil {
		var st judge0.Status
		if err := json.Unmarshal(statusJSON, &st); err != nil {
			return nil, fmt.Errorf("unmarshaling status: %w", err)
		}
		run.Status = &st
	}
	if errorJSON != nil {
		var apiErr api.APIError
		if err := json.Unmarshal(errorJSON, &apiErr); err != nil {
			return nil, fmt.Errorf("unmarshaling error: %w", err)
		}
		run.Error = &apiErr
	}
	return &run, nil
}

// marshalOptional returns nil (SQL NULL) for a nil pointer.
func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func isDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
