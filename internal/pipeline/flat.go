package pipeline

import "github.com/farxc/movimento_flat/internal/store"

// Join predicates of the flat table. Accounts and cards match the associate on
// their own id, not on id_associado.
var (
	AccountJoinKey = store.Predicate{
		Left:  store.ColumnRef{Alias: "ass", Column: "id"},
		Right: store.ColumnRef{Alias: "co", Column: "id"},
	}
	CardJoinKey = store.Predicate{
		Left:  store.ColumnRef{Alias: "ca", Column: "id"},
		Right: store.ColumnRef{Alias: "ass", Column: "id"},
	}
	MovementJoinKey = store.Predicate{
		Left:  store.ColumnRef{Alias: "mo", Column: "id_cartao"},
		Right: store.ColumnRef{Alias: "ca", Column: "id"},
	}
)

var FlatPlan = store.JoinPlan{
	Table: AssociateTable,
	Alias: "ass",
	Joins: []store.Join{
		{Kind: store.InnerJoin, Table: AccountTable, Alias: "co", On: AccountJoinKey},
		{Kind: store.LeftJoin, Table: CardTable, Alias: "ca", On: CardJoinKey},
		{Kind: store.LeftJoin, Table: MovementTable, Alias: "mo", On: MovementJoinKey},
	},
	Columns: []store.Projection{
		{From: store.ColumnRef{Alias: "ass", Column: "nome"}, As: "nome_associado"},
		{From: store.ColumnRef{Alias: "ass", Column: "sobrenome"}, As: "sobrenome_associado"},
		{From: store.ColumnRef{Alias: "ass", Column: "idade"}, As: "idade_associado", AsText: true},
		{From: store.ColumnRef{Alias: "mo", Column: "vl_transacao"}, As: "vlr_transacao_movimento", AsText: true},
		{From: store.ColumnRef{Alias: "mo", Column: "des_transacao"}, As: "des_transacao_movimento", AsText: true},
		{From: store.ColumnRef{Alias: "mo", Column: "data_movimento"}, As: "data_movimento", AsText: true},
		{From: store.ColumnRef{Alias: "ca", Column: "num_cartao"}, As: "numero_cartao", AsText: true},
		{From: store.ColumnRef{Alias: "ca", Column: "nom_impresso"}, As: "nome_impresso_cartao"},
		{From: store.ColumnRef{Alias: "ca", Column: "data_criacao"}, As: "data_criacao_cartao", AsText: true},
		{From: store.ColumnRef{Alias: "co", Column: "tipo"}, As: "tipo_conta"},
		{From: store.ColumnRef{Alias: "co", Column: "data_criacao"}, As: "data_criacao_conta", AsText: true},
	},
}
