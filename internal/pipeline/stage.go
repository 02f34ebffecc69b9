package pipeline

import (
	"fmt"
	"time"
)

type StageState string

const (
	StatePending   StageState = "PENDING"
	StateRunning   StageState = "RUNNING"
	StateSucceeded StageState = "SUCCEEDED"
	StateFailed    StageState = "FAILED"
)

const (
	StageRoutine   = "ROTINA - CASE"
	StageBootstrap = "IMPORT DADOS GIT E CRIA FUNCOES"
	StageCreate    = "CRIACAO TABELAS"
	StageLoad      = "CARGA DE DADOS"
	StageValidate  = "VALIDA TABELA - "
	StageFlatten   = "CRIACAO TABELA FLAT"
)

// Stage is one logged step of a run.
type Stage struct {
	ID         int64
	Name       string
	State      StageState
	StartedAt  time.Time
	FinishedAt time.Time
	Rows       *int64
	Err        error
}

var transitions = map[StageState][]StageState{
	StatePending: {StateRunning},
	StateRunning: {StateSucceeded, StateFailed},
}

func (s *Stage) transition(to StageState) error {
	for _, allowed := range transitions[s.State] {
		if allowed == to {
			s.State = to
			return nil
		}
	}
	return fmt.Errorf("stage %d %s: invalid transition %s -> %s", s.ID, s.Name, s.State, to)
}

func (s *Stage) begin(at time.Time) error {
	if err := s.transition(StateRunning); err != nil {
		return err
	}
	s.StartedAt = at
	return nil
}

func (s *Stage) succeed(at time.Time, rows *int64) error {
	if err := s.transition(StateSucceeded); err != nil {
		return err
	}
	s.FinishedAt = at
	s.Rows = rows
	return nil
}

func (s *Stage) fail(err error) error {
	if terr := s.transition(StateFailed); terr != nil {
		return terr
	}
	s.Err = err
	return fmt.Errorf("stage %d %s: %w", s.ID, s.Name, err)
}
