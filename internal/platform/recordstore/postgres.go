package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hms/hms/internal/platform/record"
)

// queryable is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type queryable interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres keeps every entity in the single records table created by
// migration 001_records.sql, one JSONB document per row.
type Postgres struct {
	db queryable
}

// NewPostgres wraps a pgx pool or connection.
func NewPostgres(db queryable) *Postgres {
	return &Postgres{db: db}
}

var fieldName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func (p *Postgres) FetchAll(ctx context.Context, entity string, q Query) ([]record.Record, error) {
	query, args, err := buildFetch(entity, q)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, classify("fetch "+entity, err)
	}
	defer rows.Close()

	var out []record.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, classify("fetch "+entity, err)
		}
		out = append(out, rec.Project(q.Fields))
	}
	if err := rows.Err(); err != nil {
		return nil, classify("fetch "+entity, err)
	}
	return out, nil
}

func buildFetch(entity string, q Query) (string, []any, error) {
	var b strings.Builder
	b.WriteString(`SELECT id, data FROM records WHERE entity = $1`)
	args := []any{entity}

	order := make([]string, 0, len(q.OrderBy)+1)
	for _, o := range q.OrderBy {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		if o.Field == record.FieldID {
			order = append(order, "id "+dir)
			continue
		}
		if !fieldName.MatchString(o.Field) {
			return "", nil, &ValidationError{Fields: []FieldError{{Field: o.Field, Message: "invalid order field"}}}
		}
		order = append(order, fmt.Sprintf("data->>'%s' %s NULLS LAST", o.Field, dir))
	}
	order = append(order, "id ASC")
	b.WriteString(" ORDER BY " + strings.Join(order, ", "))

	if q.Paging.Limit > 0 {
		args = append(args, q.Paging.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if q.Paging.Offset > 0 {
		args = append(args, q.Paging.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}
	return b.String(), args, nil
}

func (p *Postgres) FetchByID(ctx context.Context, entity string, id int64, fields []string) (record.Record, error) {
	row := p.db.QueryRow(ctx, `SELECT id, data FROM records WHERE entity = $1 AND id = $2`, entity, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
		}
		return nil, classify("fetch "+entity, err)
	}
	return rec.Project(fields), nil
}

func (p *Postgres) CreateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	results := make([]Result, 0, len(recs))
	for _, in := range recs {
		body := in.Clone()
		delete(body, record.FieldID)
		data, err := json.Marshal(body)
		if err != nil {
			results = append(results, Result{Success: false, Message: err.Error()})
			continue
		}
		row := p.db.QueryRow(ctx,
			`INSERT INTO records (entity, data) VALUES ($1, $2) RETURNING id, data`, entity, data)
		rec, err := scanRecord(row)
		if err != nil {
			if isConnError(err) {
				return nil, unavailable("create "+entity, err)
			}
			results = append(results, Result{Success: false, Message: err.Error()})
			continue
		}
		results = append(results, Result{ID: rec.ID(), Success: true, Record: rec})
	}
	return results, nil
}

func (p *Postgres) UpdateRecords(ctx context.Context, entity string, recs []record.Record) ([]Result, error) {
	results := make([]Result, 0, len(recs))
	for _, in := range recs {
		id := in.ID()
		if id == 0 {
			results = append(results, Result{Success: false, Message: ErrMissingID.Error()})
			continue
		}
		body := in.Clone()
		delete(body, record.FieldID)
		data, err := json.Marshal(body)
		if err != nil {
			results = append(results, Result{ID: id, Success: false, Message: err.Error()})
			continue
		}
		row := p.db.QueryRow(ctx, `
			UPDATE records SET data = data || $3::jsonb, updated_at = NOW()
			WHERE entity = $1 AND id = $2
			RETURNING id, data`, entity, id, data)
		rec, err := scanRecord(row)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			results = append(results, Result{ID: id, Success: false, NotFound: true, Message: ErrNotFound.Error()})
		case err != nil && isConnError(err):
			return nil, unavailable("update "+entity, err)
		case err != nil:
			results = append(results, Result{ID: id, Success: false, Message: err.Error()})
		default:
			results = append(results, Result{ID: id, Success: true, Record: rec})
		}
	}
	return results, nil
}

func (p *Postgres) DeleteRecords(ctx context.Context, entity string, ids []int64) ([]Result, error) {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		tag, err := p.db.Exec(ctx, `DELETE FROM records WHERE entity = $1 AND id = $2`, entity, id)
		if err != nil {
			if isConnError(err) {
				return nil, unavailable("delete "+entity, err)
			}
			results = append(results, Result{ID: id, Success: false, Message: err.Error()})
			continue
		}
		if tag.RowsAffected() == 0 {
			results = append(results, Result{ID: id, Success: false, NotFound: true, Message: ErrNotFound.Error()})
			continue
		}
		results = append(results, Result{ID: id, Success: true})
	}
	return results, nil
}

func scanRecord(row pgx.Row) (record.Record, error) {
	var (
		id   int64
		data []byte
	)
	if err := row.Scan(&id, &data); err != nil {
		return nil, err
	}
	rec := record.Record{}
	if len(data) > 0 {
		if err := decodeJSON(data, &rec); err != nil {
			return nil, fmt.Errorf("decoding record %d: %w", id, err)
		}
	}
	rec[record.FieldID] = id
	return rec, nil
}

// classify maps server-side statement errors to rejections and everything
// else to unavailability.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &RejectedError{Message: fmt.Sprintf("%s: %s", op, pgErr.Message)}
	}
	return unavailable(op, err)
}

func isConnError(err error) bool {
	var pgErr *pgconn.PgError
	return !errors.As(err, &pgErr)
}
