package pipeline

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/farxc/movimento_flat/internal/db"
	"github.com/farxc/movimento_flat/internal/logger"
	"github.com/farxc/movimento_flat/internal/pipeline/fetcher"
	"github.com/farxc/movimento_flat/internal/pipeline/types"
	"github.com/farxc/movimento_flat/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

var testSource = types.Source{Owner: "coop", Repo: "dados", Branch: "main", Subdir: "csv"}

const (
	associatesCSV = "id,nome,sobrenome,idade,email\n" +
		"1,Ana,Souza,34,ana@example.com\n" +
		"2,Bruno,Lima,41,bruno@example.com\n" +
		"3,Carla,Dias,29,carla@example.com\n"
	accountsCSV = "id,tipo,data_criacao,id_associado\n" +
		"1,corrente,2023-01-10 09:00:00,1\n" +
		"2,poupanca,2023-02-11 10:30:00,2\n" +
		"3,corrente,2023-03-12 11:45:00,3\n"
	cardsCSV = "id,num_cartao,nom_impresso,id_conta,id_associado,data_criacao\n" +
		"1,5555000011112222,ANA SOUZA,1,1,2023-04-01 08:00:00\n" +
		"2,5555000033334444,BRUNO LIMA,2,2,2023-04-02 08:00:00\n"
	movementsCSV = "id,vl_transacao,des_transacao,data_movimento,id_cartao\n" +
		"1,\"1234,56\",mercado,2024-01-05 10:00:00,1\n" +
		"2,89.90,farmacia,2024-01-06 11:00:00,2\n"
)

// fileServer serves files under /<owner>/<repo>/<branch>/<subdir>/.
type fileServer struct {
	mu    sync.Mutex
	files map[string]string
}

func (fs *fileServer) set(name, body string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if body == "" {
		delete(fs.files, name)
		return
	}
	fs.files[name] = body
}

func (fs *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	name := strings.TrimPrefix(r.URL.Path, "/coop/dados/main/csv/")
	body, ok := fs.files[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	io.WriteString(w, body)
}

type harness struct {
	files   *fileServer
	storage *store.Storage
	runner  *Runner
}

func newHarness(t *testing.T, files map[string]string) *harness {
	t.Helper()
	fs := &fileServer{files: files}
	srv := httptest.NewServer(fs)
	t.Cleanup(srv.Close)

	database, err := db.New(db.DriverSQLite, ":memory:", 1, 1, "10m")
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	ec, err := store.NewExecutionContext(context.Background(), database, store.Selection{})
	require.NoError(t, err)

	appLogger := logger.New(logger.LevelError, io.Discard)
	storage := store.NewStorage(ec)
	runner := NewRunner(storage, fetcher.New(srv.URL, 2*time.Second, appLogger), testSource, appLogger)

	clock := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	runner.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return &harness{files: fs, storage: storage, runner: runner}
}

func defaultFiles() map[string]string {
	return map[string]string{
		"associado.csv": associatesCSV,
		"conta.csv":     accountsCSV,
		"cartao.csv":    cardsCSV,
		"movimento.csv": movementsCSV,
	}
}

func (h *harness) count(t *testing.T, table string) int64 {
	t.Helper()
	n, err := h.storage.Tables.Count(context.Background(), table)
	require.NoError(t, err)
	return n
}

func (h *harness) flat(t *testing.T) []store.FlatMovement {
	t.Helper()
	rows, err := h.storage.Movements.List(context.Background(), 100, 0)
	require.NoError(t, err)
	return rows
}

func TestRunLoadsEveryEntity(t *testing.T) {
	h := newHarness(t, defaultFiles())

	report, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), h.count(t, AssociateTable))
	assert.Equal(t, int64(3), h.count(t, AccountTable))
	assert.Equal(t, int64(2), h.count(t, CardTable))
	assert.Equal(t, int64(2), h.count(t, MovementTable))
	assert.Equal(t, map[string]int64{
		AssociateTable:  3,
		AccountTable:    3,
		CardTable:       2,
		MovementTable:   2,
		store.FlatTable: 3,
	}, report.Counts)

	for _, st := range report.Stages {
		assert.Equal(t, StateSucceeded, st.State, "stage %d %s", st.ID, st.Name)
	}
	assert.NotEqual(t, uuid.Nil, report.RunID)

	require.Len(t, report.Evictions, 4)
	for _, ev := range report.Evictions {
		var ce *types.CacheEvictionError
		assert.True(t, errors.As(ev.Err, &ce), ev.Table)
	}
}

func TestRunWritesStageLog(t *testing.T) {
	h := newHarness(t, defaultFiles())
	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	entries, err := h.storage.Log.List(context.Background())
	require.NoError(t, err)

	var got []string
	for _, e := range entries {
		got = append(got, e.Stage)
		assert.True(t, e.Done(), e.Stage)
		assert.Equal(t, store.StatusOK, e.Status)
		assert.False(t, e.FinishedAt.Time.Before(e.StartedAt.Time), e.Stage)
	}
	assert.Equal(t, []string{
		StageRoutine,
		StageBootstrap,
		StageCreate,
		StageLoad,
		StageValidate + AssociateTable,
		StageValidate + AccountTable,
		StageValidate + CardTable,
		StageValidate + MovementTable,
		StageFlatten,
	}, got)

	counts := map[string]int64{}
	for _, e := range entries {
		counts[e.Stage] = e.RowCount
	}
	assert.Equal(t, int64(3), counts[StageValidate+AssociateTable])
	assert.Equal(t, int64(2), counts[StageValidate+MovementTable])
	assert.Equal(t, int64(3), counts[StageFlatten])
	assert.Zero(t, counts[StageLoad])
}

func TestRunFlatTable(t *testing.T) {
	h := newHarness(t, defaultFiles())
	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	rows := h.flat(t)
	require.Len(t, rows, 3)

	withCard := 0
	for _, r := range rows {
		if r.CardNumber != nil {
			withCard++
		}
	}
	assert.Equal(t, 2, withCard)

	ana := rows[0]
	assert.Equal(t, "Ana", *ana.AssociateName)
	assert.Equal(t, "Souza", *ana.AssociateLastName)
	assert.Equal(t, "34", *ana.AssociateAge)
	assert.Equal(t, "1234.56", *ana.MovementValue)
	assert.Equal(t, "mercado", *ana.MovementDesc)
	assert.Equal(t, "2024-01-05 10:00:00", *ana.MovementDate)
	assert.Equal(t, "5555000011112222", *ana.CardNumber)
	assert.Equal(t, "ANA SOUZA", *ana.CardPrintedName)
	assert.Equal(t, "2023-04-01 08:00:00", *ana.CardCreatedAt)
	assert.Equal(t, "corrente", *ana.AccountType)
	assert.Equal(t, "2023-01-10 09:00:00", *ana.AccountCreatedAt)

	assert.Equal(t, "89.90", *rows[1].MovementValue)

	carla := rows[2]
	assert.Equal(t, "Carla", *carla.AssociateName)
	assert.Nil(t, carla.CardNumber)
	assert.Nil(t, carla.MovementValue)
	assert.NotNil(t, carla.AccountType)
}

func TestRunFlatMultipliesMovements(t *testing.T) {
	files := defaultFiles()
	files["movimento.csv"] = "id,vl_transacao,des_transacao,data_movimento,id_cartao\n" +
		"1,10.00,a,2024-01-01 10:00:00,1\n" +
		"2,11.00,b,2024-01-02 10:00:00,1\n" +
		"3,12.00,c,2024-01-03 10:00:00,2\n" +
		"4,13.00,d,2024-01-04 10:00:00,2\n" +
		"5,14.00,e,2024-01-05 10:00:00,2\n"
	h := newHarness(t, files)

	report, err := h.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6), report.Counts[store.FlatTable])
	assert.Len(t, h.flat(t), 6)
}

func TestRunAssociateWithoutCards(t *testing.T) {
	h := newHarness(t, map[string]string{
		"associado.csv": "id,nome,sobrenome,idade,email\n1,Ana,Souza,34,ana@example.com\n",
		"conta.csv":     "id,tipo,data_criacao,id_associado\n1,corrente,2023-01-10 09:00:00,1\n",
		"cartao.csv":    "id,num_cartao,nom_impresso,id_conta,id_associado,data_criacao\n",
		"movimento.csv": "id,vl_transacao,des_transacao,data_movimento,id_cartao\n",
	})

	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	rows := h.flat(t)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, "Ana", *r.AssociateName)
	assert.Equal(t, "corrente", *r.AccountType)
	assert.Nil(t, r.CardNumber)
	assert.Nil(t, r.CardPrintedName)
	assert.Nil(t, r.CardCreatedAt)
	assert.Nil(t, r.MovementValue)
	assert.Nil(t, r.MovementDesc)
	assert.Nil(t, r.MovementDate)
}

func TestRunLatin1Source(t *testing.T) {
	files := defaultFiles()
	latin1, err := charmap.ISO8859_1.NewEncoder().String(
		"id,nome,sobrenome,idade,email\n" +
			"1,João,Conceição,34,joao@example.com\n" +
			"2,Bruno,Lima,41,bruno@example.com\n" +
			"3,Carla,Dias,29,carla@example.com\n")
	require.NoError(t, err)
	files["associado.csv"] = latin1
	h := newHarness(t, files)

	_, err = h.runner.Run(context.Background())
	require.NoError(t, err)

	rows := h.flat(t)
	require.Len(t, rows, 3)
	assert.Equal(t, "João", *rows[2].AssociateName)
	assert.Equal(t, "Conceição", *rows[2].AssociateLastName)
}

func TestRunMissingFileAbortsBeforeOverwrite(t *testing.T) {
	files := defaultFiles()
	delete(files, "movimento.csv")
	h := newHarness(t, files)

	report, err := h.runner.Run(context.Background())
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "stage 4 "+StageLoad), err.Error())

	var te *types.TransferError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, http.StatusNotFound, te.StatusCode)

	for _, e := range Entities {
		assert.Zero(t, h.count(t, e.Table), e.Table)
	}

	assert.Equal(t, StateFailed, report.Stage(4).State)
	assert.Equal(t, StateRunning, report.Stage(1).State)
	assert.Nil(t, report.Stage(6))

	entries, err := h.storage.Log.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 4)
	for _, e := range entries {
		switch e.ID {
		case 1, 4:
			assert.False(t, e.FinishedAt.Valid, e.Stage)
			assert.Equal(t, "", e.Status, e.Stage)
			assert.True(t, e.StartedAt.Valid, e.Stage)
		default:
			assert.True(t, e.Done(), e.Stage)
		}
	}
}

func TestRunMissingFileKeepsPreviousLoad(t *testing.T) {
	h := newHarness(t, defaultFiles())
	_, err := h.runner.Run(context.Background())
	require.NoError(t, err)

	h.files.set("movimento.csv", "")
	_, err = h.runner.Run(context.Background())
	require.Error(t, err)

	assert.Equal(t, int64(3), h.count(t, AssociateTable))
	assert.Equal(t, int64(2), h.count(t, MovementTable))
}

func TestRunCastFailureAborts(t *testing.T) {
	files := defaultFiles()
	files["conta.csv"] = "id,tipo,data_criacao,id_associado\n1,corrente,ontem,1\n"
	h := newHarness(t, files)

	report, err := h.runner.Run(context.Background())
	var ce *types.CastError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "data_criacao", ce.Column)
	assert.Equal(t, 0, ce.Row)
	assert.Equal(t, StateFailed, report.Stage(4).State)
}

func TestRunTwiceIsIdempotent(t *testing.T) {
	h := newHarness(t, defaultFiles())
	ctx := context.Background()

	_, err := h.runner.Run(ctx)
	require.NoError(t, err)
	first := map[string]int64{}
	firstCols := map[string][]store.ColumnInfo{}
	for _, e := range Entities {
		first[e.Table] = h.count(t, e.Table)
		cols, err := h.storage.Tables.Describe(ctx, e.Table)
		require.NoError(t, err)
		firstCols[e.Table] = cols
	}

	report, err := h.runner.Run(ctx)
	require.NoError(t, err)
	for _, ev := range report.Evictions {
		assert.NoError(t, ev.Err, ev.Table)
	}
	for _, e := range Entities {
		assert.Equal(t, first[e.Table], h.count(t, e.Table), e.Table)
		cols, err := h.storage.Tables.Describe(ctx, e.Table)
		require.NoError(t, err)
		assert.Equal(t, firstCols[e.Table], cols, e.Table)
	}
	assert.Len(t, h.flat(t), 3)

	entries, err := h.storage.Log.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 9)
}

func TestFlatPlanPredicates(t *testing.T) {
	assert.Equal(t, "ass.id = co.id", AccountJoinKey.String())
	assert.Equal(t, "ca.id = ass.id", CardJoinKey.String())
	assert.Equal(t, "mo.id_cartao = ca.id", MovementJoinKey.String())
	assert.Len(t, FlatPlan.Columns, 11)
}
