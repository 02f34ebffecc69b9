package main

import (
	"net/http"

	"github.com/farxc/movimento_flat/internal/response"
	"github.com/farxc/movimento_flat/internal/store"
)

type GetLogResponse = response.APIResponse[[]store.LogEntry]

// @Summary		Get stage log
// @Description	Get the stage rows written by the last pipeline run.
// @Tags			Log
// @Produce		json
// @Success		200	{object}	GetLogResponse			"Successfully retrieved stage log"
// @Failure		500	{object}	response.ErrorResponse	"Failed to get stage log"
// @Router			/log [get]
func (app *application) handleGetLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	data, err := app.store.Log.List(ctx)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to get stage log: "+err.Error())
		return
	}

	response := &GetLogResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved stage log",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
