package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// sqliteTimeLayout keeps timestamps sortable and matches their text cast on
// other engines.
const sqliteTimeLayout = "2006-01-02 15:04:05.999999999"

// Dialect covers the engine specific parts of table management.
type Dialect interface {
	Name() string
	ColumnType(t types.ColumnType) string
	BindTime(t time.Time) any
	CurrentSchema(ctx context.Context, db *sqlx.DB) (string, error)
	CheckSelection(ctx context.Context, db *sqlx.DB, catalog, schema string) error
	DescribeQuery(schema, table string) (string, []any)
}

func dialectFor(driver string) (Dialect, error) {
	switch driver {
	case "postgres":
		return postgresDialect{}, nil
	case "sqlite":
		return sqliteDialect{}, nil
	default:
		return nil, fmt.Errorf("no dialect for driver %q", driver)
	}
}

// bindValue converts a cast value into a driver argument for the column type.
func bindValue(d Dialect, t types.ColumnType, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return d.BindTime(val)
	case decimal.Decimal:
		if t.Kind == types.KindDecimal {
			return val.StringFixed(int32(t.Scale))
		}
		return val.String()
	default:
		return val
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) ColumnType(t types.ColumnType) string {
	switch t.Kind {
	case types.KindInt:
		return "BIGINT"
	case types.KindTimestamp:
		return "TIMESTAMP"
	case types.KindDecimal:
		return fmt.Sprintf("NUMERIC(%d,%d)", t.Precision, t.Scale)
	default:
		return "TEXT"
	}
}

func (postgresDialect) BindTime(t time.Time) any { return t }

func (postgresDialect) CurrentSchema(ctx context.Context, db *sqlx.DB) (string, error) {
	var schema string
	err := db.GetContext(ctx, &schema, "SELECT current_schema()")
	return schema, err
}

func (postgresDialect) CheckSelection(ctx context.Context, db *sqlx.DB, catalog, schema string) error {
	var current string
	if err := db.GetContext(ctx, &current, "SELECT current_database()"); err != nil {
		return err
	}
	if catalog != "" && catalog != current {
		return fmt.Errorf("catalog %q is not the connected database %q", catalog, current)
	}

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM information_schema.schemata WHERE schema_name = $1)"
	if err := db.GetContext(ctx, &exists, query, schema); err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("schema %q does not exist", schema)
	}
	return nil
}

func (postgresDialect) DescribeQuery(schema, table string) (string, []any) {
	return `SELECT column_name AS name, data_type AS type
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position`, []any{schema, table}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) ColumnType(t types.ColumnType) string {
	switch t.Kind {
	case types.KindInt:
		return "INTEGER"
	case types.KindTimestamp:
		return "TIMESTAMP"
	default:
		// Decimals stay TEXT so the fixed scale survives; NUMERIC affinity
		// would turn "10.50" into the real 10.5.
		return "TEXT"
	}
}

func (sqliteDialect) BindTime(t time.Time) any { return t.Format(sqliteTimeLayout) }

func (sqliteDialect) CurrentSchema(context.Context, *sqlx.DB) (string, error) {
	return "main", nil
}

// CheckSelection only validates the schema: SQLite has no catalog level above
// attached databases.
func (sqliteDialect) CheckSelection(ctx context.Context, db *sqlx.DB, _, schema string) error {
	var names []string
	if err := db.SelectContext(ctx, &names, "SELECT name FROM pragma_database_list"); err != nil {
		return err
	}
	for _, n := range names {
		if n == schema {
			return nil
		}
	}
	return fmt.Errorf("schema %q is not an attached database", schema)
}

func (sqliteDialect) DescribeQuery(schema, table string) (string, []any) {
	return "SELECT name, type FROM pragma_table_info(?, ?) ORDER BY cid", []any{table, schema}
}
