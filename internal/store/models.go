package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

const (
	LogTable  = "log"
	FlatTable = "movimento_flat"
)

var StatusOK = "OK"

// LogSchema is the layout of the log table.
var LogSchema = types.Schema{
	{Name: "id", Type: types.Int},
	{Name: "etapa", Type: types.String},
	{Name: "data_hora_ini", Type: types.Timestamp},
	{Name: "data_hora_fim", Type: types.Timestamp},
	{Name: "status", Type: types.String},
	{Name: "qtd_reg", Type: types.Int},
}

// LogEntry represents one row of the 'log' table.
type LogEntry struct {
	ID         int64    `db:"id" json:"id"`
	Stage      string   `db:"etapa" json:"etapa"`
	StartedAt  NullTime `db:"data_hora_ini" json:"data_hora_ini"`
	FinishedAt NullTime `db:"data_hora_fim" json:"data_hora_fim"`
	Status     string   `db:"status" json:"status"`
	RowCount   int64    `db:"qtd_reg" json:"qtd_reg"`
}

// Done reports whether the stage row reached its terminal state.
func (e LogEntry) Done() bool {
	return e.FinishedAt.Valid && e.Status != ""
}

// FlatMovement represents one row of the 'movimento_flat' table. Every
// column may be NULL because of the outer joins.
type FlatMovement struct {
	AssociateName     *string `db:"nome_associado" json:"nome_associado"`
	AssociateLastName *string `db:"sobrenome_associado" json:"sobrenome_associado"`
	AssociateAge      *string `db:"idade_associado" json:"idade_associado"`
	MovementValue     *string `db:"vlr_transacao_movimento" json:"vlr_transacao_movimento"`
	MovementDesc      *string `db:"des_transacao_movimento" json:"des_transacao_movimento"`
	MovementDate      *string `db:"data_movimento" json:"data_movimento"`
	CardNumber        *string `db:"numero_cartao" json:"numero_cartao"`
	CardPrintedName   *string `db:"nome_impresso_cartao" json:"nome_impresso_cartao"`
	CardCreatedAt     *string `db:"data_criacao_cartao" json:"data_criacao_cartao"`
	AccountType       *string `db:"tipo_conta" json:"tipo_conta"`
	AccountCreatedAt  *string `db:"data_criacao_conta" json:"data_criacao_conta"`
}

// ColumnInfo is a column as reported by the database catalog.
type ColumnInfo struct {
	Name string `db:"name" json:"name"`
	Type string `db:"type" json:"type"`
}

// NullTime scans timestamps from drivers that return either time.Time or
// text, and NULL.
type NullTime struct {
	Time  time.Time
	Valid bool
}

var scanTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

func (nt *NullTime) Scan(value any) error {
	switch v := value.(type) {
	case nil:
		*nt = NullTime{}
		return nil
	case time.Time:
		*nt = NullTime{Time: v, Valid: true}
		return nil
	case []byte:
		return nt.parse(string(v))
	case string:
		return nt.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into NullTime", value)
	}
}

func (nt *NullTime) parse(s string) error {
	for _, layout := range scanTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*nt = NullTime{Time: t, Valid: true}
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}

func (nt NullTime) MarshalJSON() ([]byte, error) {
	if !nt.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(nt.Time.Format(time.RFC3339Nano))
}
