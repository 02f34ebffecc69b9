package pipeline

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageTransitions(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	st := &Stage{ID: 3, Name: StageCreate, State: StatePending}
	assert.Error(t, st.succeed(at, nil))
	require.NoError(t, st.begin(at))
	assert.Error(t, st.begin(at))

	rows := int64(7)
	require.NoError(t, st.succeed(at.Add(time.Second), &rows))
	assert.Equal(t, StateSucceeded, st.State)
	assert.Equal(t, int64(7), *st.Rows)
	assert.Error(t, st.fail(errors.New("late")))

	st = &Stage{ID: 4, Name: StageLoad, State: StatePending}
	require.NoError(t, st.begin(at))
	cause := errors.New("boom")
	err := st.fail(cause)
	assert.ErrorIs(t, err, cause)
	assert.EqualError(t, err, "stage 4 CARGA DE DADOS: boom")
	assert.Equal(t, StateFailed, st.State)
	assert.Error(t, st.begin(at))
}
