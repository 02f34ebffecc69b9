package main

import (
	"errors"
	"net/http"

	"github.com/farxc/movimento_flat/internal/pipeline"
	"github.com/farxc/movimento_flat/internal/response"
	"github.com/farxc/movimento_flat/internal/store"
	"github.com/go-chi/chi/v5"
)

type TableCount struct {
	Table string `json:"table"`
	Rows  int64  `json:"rows"`
}

type CountTableResponse = response.APIResponse[TableCount]

func isKnownTable(name string) bool {
	if name == store.LogTable || name == store.FlatTable {
		return true
	}
	for _, e := range pipeline.Entities {
		if e.Table == name {
			return true
		}
	}
	return false
}

// @Summary		Count table rows
// @Description	Returns the row count of one of the pipeline tables.
// @Tags			Tables
// @Produce		json
// @Param			name	path		string					true	"Table name"
// @Success		200		{object}	CountTableResponse		"Successfully counted rows"
// @Failure		404		{object}	response.ErrorResponse	"Unknown or missing table"
// @Failure		500		{object}	response.ErrorResponse	"Failed to count rows"
// @Router			/tables/{name}/count [get]
func (app *application) handleCountTable(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !isKnownTable(name) {
		writeJSONError(w, http.StatusNotFound, "unknown table "+name)
		return
	}

	// The batch job drops and recreates tables; check the catalog on every
	// request.
	ctx := r.Context()
	if err := app.store.Tables.Uncache(ctx, name); err != nil {
		if errors.Is(err, store.ErrTableNotFound) {
			writeJSONError(w, http.StatusNotFound, "table "+name+" has not been created yet")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "failed to look up table: "+err.Error())
		return
	}

	n, err := app.store.Tables.Count(ctx, name)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to count rows: "+err.Error())
		return
	}

	response := &CountTableResponse{
		Success: true,
		Data:    TableCount{Table: name, Rows: n},
		Message: "Successfully counted rows",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
