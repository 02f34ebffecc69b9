package main

import (
	"net/http"

	"github.com/farxc/movimento_flat/internal/response"
	"github.com/farxc/movimento_flat/internal/store"
)

type ListMovementsResponse = response.APIResponse[[]store.FlatMovement]

// @Summary		List flat movements
// @Description	Page through the movimento_flat table.
// @Tags			Movements
// @Produce		json
// @Param			limit	query		int						false	"Page size"	default(50)
// @Param			offset	query		int						false	"Rows to skip"	default(0)
// @Success		200		{object}	ListMovementsResponse	"Successfully retrieved movements"
// @Failure		400		{object}	response.ErrorResponse	"Invalid paging parameters"
// @Failure		500		{object}	response.ErrorResponse	"Failed to list movements"
// @Router			/movements [get]
func (app *application) handleListMovements(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r.URL.Query())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	data, err := app.store.Movements.List(ctx, limit, offset)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to list movements: "+err.Error())
		return
	}

	response := &ListMovementsResponse{
		Success: true,
		Data:    data,
		Message: "Successfully retrieved movements",
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to write response")
	}
}
