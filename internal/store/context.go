package store

import (
	"context"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/jmoiron/sqlx"
)

// Selection is the requested catalog and schema. When UseCatalog is false the
// connection's current schema is used.
type Selection struct {
	UseCatalog bool
	Catalog    string
	Schema     string
}

// ExecutionContext carries the table access handle and the active
// catalog/schema selection. Every store operation goes through one.
type ExecutionContext struct {
	DB      *sqlx.DB
	Dialect Dialect
	Catalog string
	Schema  string
}

// NewExecutionContext resolves the dialect for db and applies sel before any
// table is touched.
func NewExecutionContext(ctx context.Context, db *sqlx.DB, sel Selection) (*ExecutionContext, error) {
	dialect, err := dialectFor(db.DriverName())
	if err != nil {
		return nil, &types.StoreError{Op: "open", Err: err}
	}

	ec := &ExecutionContext{DB: db, Dialect: dialect}

	if sel.UseCatalog {
		if err := dialect.CheckSelection(ctx, db, sel.Catalog, sel.Schema); err != nil {
			return nil, &types.StoreError{Op: "use catalog", Err: err}
		}
		ec.Catalog = sel.Catalog
		ec.Schema = sel.Schema
		return ec, nil
	}

	schema, err := dialect.CurrentSchema(ctx, db)
	if err != nil {
		return nil, &types.StoreError{Op: "current schema", Err: err}
	}
	ec.Schema = schema
	return ec, nil
}

// Qualify returns the quoted, schema qualified name of table.
func (ec *ExecutionContext) Qualify(table string) string {
	return quoteIdent(ec.Schema) + "." + quoteIdent(table)
}
