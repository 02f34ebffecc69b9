package pipeline

import "github.com/farxc/movimento_flat/internal/pipeline/types"

const (
	AssociateTable = "associado"
	AccountTable   = "conta"
	CardTable      = "cartao"
	MovementTable  = "movimento"
)

var AssociateSchema = types.Schema{
	{Name: "id", Type: types.Int},
	{Name: "nome", Type: types.String},
	{Name: "sobrenome", Type: types.String},
	{Name: "idade", Type: types.Int},
	{Name: "email", Type: types.String},
}

var AccountSchema = types.Schema{
	{Name: "id", Type: types.Int},
	{Name: "tipo", Type: types.String},
	{Name: "data_criacao", Type: types.Timestamp},
	{Name: "id_associado", Type: types.Int},
}

var CardSchema = types.Schema{
	{Name: "id", Type: types.Int},
	{Name: "num_cartao", Type: types.Int},
	{Name: "nom_impresso", Type: types.String},
	{Name: "id_conta", Type: types.Int},
	{Name: "id_associado", Type: types.Int},
	{Name: "data_criacao", Type: types.Timestamp},
}

var MovementSchema = types.Schema{
	{Name: "id", Type: types.Int},
	{Name: "vl_transacao", Type: types.Decimal(10, 2)},
	{Name: "des_transacao", Type: types.String},
	{Name: "data_movimento", Type: types.Timestamp},
	{Name: "id_cartao", Type: types.Int},
}

// Entities lists the base tables in load order.
var Entities = []types.Entity{
	{Table: AssociateTable, File: "associado.csv", Schema: AssociateSchema},
	{Table: AccountTable, File: "conta.csv", Schema: AccountSchema},
	{Table: CardTable, File: "cartao.csv", Schema: CardSchema},
	{Table: MovementTable, File: "movimento.csv", Schema: MovementSchema},
}
