package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

var ErrTableNotFound = errors.New("table not found")

type TableStore struct {
	ec *ExecutionContext

	// described caches catalog lookups per table; DDL through this store
	// invalidates the entry.
	mu        sync.Mutex
	described map[string][]ColumnInfo
}

func NewTableStore(ec *ExecutionContext) *TableStore {
	return &TableStore{ec: ec, described: make(map[string][]ColumnInfo)}
}

func (ts *TableStore) createSQL(table string, schema types.Schema, ifNotExists bool) string {
	cols := make([]string, len(schema))
	for i, c := range schema {
		cols[i] = quoteIdent(c.Name) + " " + ts.ec.Dialect.ColumnType(c.Type)
	}
	clause := "CREATE TABLE "
	if ifNotExists {
		clause += "IF NOT EXISTS "
	}
	return clause + ts.ec.Qualify(table) + " (\n\t" + strings.Join(cols, ",\n\t") + "\n)"
}

func (ts *TableStore) CreateIfAbsent(ctx context.Context, table string, schema types.Schema) error {
	if len(schema) == 0 {
		return &types.StoreError{Op: "create", Table: table, Err: errors.New("empty schema")}
	}
	if _, err := ts.ec.DB.ExecContext(ctx, ts.createSQL(table, schema, true)); err != nil {
		return &types.StoreError{Op: "create", Table: table, Err: err}
	}
	ts.forget(table)
	return nil
}

// Overwrite replaces table with ds: data and schema. The drop, create and
// inserts share one transaction.
func (ts *TableStore) Overwrite(ctx context.Context, table string, ds *types.Dataset) (int64, error) {
	if ds == nil || len(ds.Schema) == 0 {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: errors.New("dataset has no columns")}
	}
	defer ts.forget(table)

	tx, err := ts.ec.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+ts.ec.Qualify(table)); err != nil {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: fmt.Errorf("drop: %w", err)}
	}
	if _, err := tx.ExecContext(ctx, ts.createSQL(table, ds.Schema, false)); err != nil {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: fmt.Errorf("create: %w", err)}
	}

	cols := make([]string, len(ds.Schema))
	marks := make([]string, len(ds.Schema))
	for i, c := range ds.Schema {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ts.ec.Qualify(table), strings.Join(cols, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insert))
	if err != nil {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: fmt.Errorf("prepare insert: %w", err)}
	}
	defer stmt.Close()

	var inserted int64
	args := make([]any, len(ds.Schema))
	for i, row := range ds.Rows {
		if len(row) != len(ds.Schema) {
			return 0, &types.StoreError{Op: "overwrite", Table: table,
				Err: fmt.Errorf("row %d has %d values for %d columns", i, len(row), len(ds.Schema))}
		}
		for j, v := range row {
			args[j] = bindValue(ts.ec.Dialect, ds.Schema[j].Type, v)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return 0, &types.StoreError{Op: "overwrite", Table: table, Err: fmt.Errorf("insert row %d: %w", i, err)}
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, &types.StoreError{Op: "overwrite", Table: table, Err: fmt.Errorf("commit: %w", err)}
	}
	return inserted, nil
}

func (ts *TableStore) DropIfExists(ctx context.Context, table string) error {
	defer ts.forget(table)
	if _, err := ts.ec.DB.ExecContext(ctx, "DROP TABLE IF EXISTS "+ts.ec.Qualify(table)); err != nil {
		return &types.StoreError{Op: "drop", Table: table, Err: err}
	}
	return nil
}

func (ts *TableStore) Count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := ts.ec.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+ts.ec.Qualify(table)); err != nil {
		return 0, &types.StoreError{Op: "count", Table: table, Err: err}
	}
	return n, nil
}

// Describe returns the catalog columns of table, or ErrTableNotFound.
func (ts *TableStore) Describe(ctx context.Context, table string) ([]ColumnInfo, error) {
	ts.mu.Lock()
	cached, ok := ts.described[table]
	ts.mu.Unlock()
	if ok {
		return cached, nil
	}

	cols, err := ts.lookup(ctx, table)
	if err != nil {
		return nil, &types.StoreError{Op: "describe", Table: table, Err: err}
	}

	ts.mu.Lock()
	ts.described[table] = cols
	ts.mu.Unlock()
	return cols, nil
}

// Uncache drops the cached description of table. It fails with a
// *types.CacheEvictionError when the table does not exist.
func (ts *TableStore) Uncache(ctx context.Context, table string) error {
	if _, err := ts.lookup(ctx, table); err != nil {
		return &types.CacheEvictionError{Table: table, Err: err}
	}
	ts.forget(table)
	return nil
}

// CreateAs creates table from the result of plan and returns its row count.
func (ts *TableStore) CreateAs(ctx context.Context, table string, plan JoinPlan) (int64, error) {
	query, err := plan.render(ts.ec)
	if err != nil {
		return 0, &types.StoreError{Op: "create as", Table: table, Err: err}
	}
	defer ts.forget(table)

	if _, err := ts.ec.DB.ExecContext(ctx, "CREATE TABLE "+ts.ec.Qualify(table)+" AS\n"+query); err != nil {
		return 0, &types.StoreError{Op: "create as", Table: table, Err: err}
	}
	return ts.Count(ctx, table)
}

func (ts *TableStore) lookup(ctx context.Context, table string) ([]ColumnInfo, error) {
	query, args := ts.ec.Dialect.DescribeQuery(ts.ec.Schema, table)
	var cols []ColumnInfo
	if err := ts.ec.DB.SelectContext(ctx, &cols, query, args...); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, ErrTableNotFound
	}
	return cols, nil
}

func (ts *TableStore) forget(table string) {
	ts.mu.Lock()
	delete(ts.described, table)
	ts.mu.Unlock()
}
