package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

// LogStore writes the per-stage progress rows of the 'log' table.
type LogStore struct {
	ec *ExecutionContext
}

// Recreate drops the log table and creates it empty.
func (ls *LogStore) Recreate(ctx context.Context) error {
	tables := NewTableStore(ls.ec)
	if err := tables.DropIfExists(ctx, LogTable); err != nil {
		return err
	}
	return tables.CreateIfAbsent(ctx, LogTable, LogSchema)
}

// Start inserts the row of a stage that has just begun: no end time, empty
// status and a zero row count.
func (ls *LogStore) Start(ctx context.Context, id int64, stage string, at time.Time) error {
	query := `INSERT INTO ` + ls.ec.Qualify(LogTable) + ` (
		id,
		etapa,
		data_hora_ini,
		data_hora_fim,
		status,
		qtd_reg
	) VALUES (
		:id,
		:etapa,
		:data_hora_ini,
		NULL,
		'',
		0
	)`

	_, err := ls.ec.DB.NamedExecContext(ctx, query, map[string]any{
		"id":            id,
		"etapa":         stage,
		"data_hora_ini": ls.ec.Dialect.BindTime(at),
	})
	if err != nil {
		return &types.StoreError{Op: "log start", Table: LogTable, Err: err}
	}
	return nil
}

// Finish marks stage id as OK at the given time. A nil rowCount leaves
// qtd_reg untouched.
func (ls *LogStore) Finish(ctx context.Context, id int64, at time.Time, rowCount *int64) error {
	args := map[string]any{
		"id":            id,
		"data_hora_fim": ls.ec.Dialect.BindTime(at),
		"status":        StatusOK,
	}
	set := "data_hora_fim = :data_hora_fim, status = :status"
	if rowCount != nil {
		set += ", qtd_reg = :qtd_reg"
		args["qtd_reg"] = *rowCount
	}
	query := "UPDATE " + ls.ec.Qualify(LogTable) + " SET " + set + " WHERE id = :id"

	result, err := ls.ec.DB.NamedExecContext(ctx, query, args)
	if err != nil {
		return &types.StoreError{Op: "log finish", Table: LogTable, Err: err}
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return &types.StoreError{Op: "log finish", Table: LogTable, Err: fmt.Errorf("no row for stage %d", id)}
	}
	return nil
}

// Record inserts a complete row, used for audit entries that start and end
// at once.
func (ls *LogStore) Record(ctx context.Context, entry LogEntry) error {
	if !entry.StartedAt.Valid {
		return &types.StoreError{Op: "log record", Table: LogTable, Err: errors.New("entry has no start time")}
	}

	var finished any
	if entry.FinishedAt.Valid {
		finished = ls.ec.Dialect.BindTime(entry.FinishedAt.Time)
	}

	query := `INSERT INTO ` + ls.ec.Qualify(LogTable) + ` (
		id,
		etapa,
		data_hora_ini,
		data_hora_fim,
		status,
		qtd_reg
	) VALUES (
		:id,
		:etapa,
		:data_hora_ini,
		:data_hora_fim,
		:status,
		:qtd_reg
	)`

	_, err := ls.ec.DB.NamedExecContext(ctx, query, map[string]any{
		"id":            entry.ID,
		"etapa":         entry.Stage,
		"data_hora_ini": ls.ec.Dialect.BindTime(entry.StartedAt.Time),
		"data_hora_fim": finished,
		"status":        entry.Status,
		"qtd_reg":       entry.RowCount,
	})
	if err != nil {
		return &types.StoreError{Op: "log record", Table: LogTable, Err: err}
	}
	return nil
}

func (ls *LogStore) List(ctx context.Context) ([]LogEntry, error) {
	query := `SELECT id, etapa, data_hora_ini, data_hora_fim, status, qtd_reg
		FROM ` + ls.ec.Qualify(LogTable) + `
		ORDER BY id, data_hora_ini, etapa`

	var entries []LogEntry
	if err := ls.ec.DB.SelectContext(ctx, &entries, query); err != nil {
		return nil, &types.StoreError{Op: "log list", Table: LogTable, Err: err}
	}
	return entries, nil
}
