package store

import (
	"context"

	"github.com/farxc/movimento_flat/internal/pipeline/types"
)

type MovementStore struct {
	ec *ExecutionContext
}

// List pages through the flat movement table in a stable order.
func (ms *MovementStore) List(ctx context.Context, limit, offset int) ([]FlatMovement, error) {
	query := `SELECT
		nome_associado,
		sobrenome_associado,
		idade_associado,
		vlr_transacao_movimento,
		des_transacao_movimento,
		data_movimento,
		numero_cartao,
		nome_impresso_cartao,
		data_criacao_cartao,
		tipo_conta,
		data_criacao_conta
	FROM ` + ms.ec.Qualify(FlatTable) + `
	ORDER BY nome_associado, sobrenome_associado, numero_cartao, data_movimento, vlr_transacao_movimento
	LIMIT ? OFFSET ?`

	movements := []FlatMovement{}
	if err := ms.ec.DB.SelectContext(ctx, &movements, ms.ec.DB.Rebind(query), limit, offset); err != nil {
		return nil, &types.StoreError{Op: "list", Table: FlatTable, Err: err}
	}
	return movements, nil
}
