package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/syncroom/server/internal/service/room"
	"github.com/syncroom/server/pkg/rest"
)

type createRoomInput struct {
	Name      string `json:"name" validate:"required,min=1,max=100"`
	CreatedBy string `json:"createdBy" validate:"required,min=1,max=50"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomInput
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read body", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Name:      req.Name,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"data": resp.Room})
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	resp, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-code"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": resp})
}

const defaultHistoryLimit = 50

func (c controller) getHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	history, err := c.roomService.GetHistory(r.Context(), chi.URLParam(r, "room-code"), limit)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"data": history})
}

func (c controller) healthz(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"status": "ok"})
}

func (c controller) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		rest.WriteJSON(w, http.StatusNotFound, rest.Envelope{"error": "room not found"})
	case errors.Is(err, room.ErrRoomCodeExhausted):
		c.logger.ErrorContext(r.Context(), "room code space exhausted", "error", err)
		rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": "could not allocate room code"})
	default:
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
	}
}
