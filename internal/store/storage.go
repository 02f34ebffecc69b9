package store

import (
	"context"
	"time"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

type Storage struct {
	Tables interface {
		CreateIfAbsent(ctx context.Context, table string, schema types.Schema) error
		Overwrite(ctx context.Context, table string, ds *types.Dataset) (int64, error)
		DropIfExists(ctx context.Context, table string) error
		Count(ctx context.Context, table string) (int64, error)
		Describe(ctx context.Context, table string) ([]ColumnInfo, error)
		Uncache(ctx context.Context, table string) error
		CreateAs(ctx context.Context, table string, plan JoinPlan) (int64, error)
	}

	Log interface {
		Recreate(ctx context.Context) error
		Start(ctx context.Context, id int64, stage string, at time.Time) error
		Finish(ctx context.Context, id int64, at time.Time, rowCount *int64) error
		Record(ctx context.Context, entry LogEntry) error
		List(ctx context.Context) ([]LogEntry, error)
	}

	Movements interface {
		List(ctx context.Context, limit, offset int) ([]FlatMovement, error)
	}
}

func NewStorage(ec *ExecutionContext) *Storage {
	return &Storage{
		Tables:    NewTableStore(ec),
		Log:       &LogStore{ec: ec},
		Movements: &MovementStore{ec: ec},
	}
}
