package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/starford/meetbook/internal/apperr"
	"github.com/starford/meetbook/internal/meetingservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *meetingservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *meetingservice.Service) *Handler {
	return &Handler{svc: svc}
}

// ListMeetings handles GET /api/meetings.
//
//	@Summary		List active meetings visible to the caller, newest first
//	@Tags			meetings
//	@Produce		json
//	@Param			createBy	query		string	false	"Creator id (admins only)"
//	@Success		200			{array}		MeetingView
//	@Failure		500			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings [get]
func (h *Handler) ListMeetings(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context(), caller(r), r.URL.Query().Get("createBy"))
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid createBy format"))
			return
		}
		slog.Error("list meetings failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, faultBody("Error fetching meetings", err))
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// CreateMeeting handles POST /api/meetings/add.
//
//	@Summary		Create a meeting owned by the caller
//	@Tags			meetings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateMeetingRequest	true	"Meeting to create"
//	@Success		201		{object}	MeetingView
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/add [post]
func (h *Handler) CreateMeeting(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON"))
		return
	}

	view, err := h.svc.Create(r.Context(), caller(r), req)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		var verr *apperr.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, errResponse{Message: "Validation failed", Errors: verr.Fields})
			return
		}
		slog.Error("create meeting failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, faultBody("Error creating meeting", err))
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetMeeting handles GET /api/meetings/view/{id}.
//
//	@Summary		Get a single active meeting
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		string	true	"Meeting id"
//	@Success		200	{object}	MeetingView
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/view/{id} [get]
func (h *Handler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	view, err := h.svc.Get(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid meeting ID format"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Meeting not found"))
		default:
			slog.Error("get meeting failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, faultBody("Error fetching meeting", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteMeeting handles DELETE /api/meetings/delete/{id}.
//
//	@Summary		Soft delete one meeting
//	@Tags			meetings
//	@Produce		json
//	@Param			id	path		string	true	"Meeting id"
//	@Success		200	{object}	MessageResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/delete/{id} [delete]
func (h *Handler) DeleteMeeting(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.SoftDelete(r.Context(), caller(r), id); err != nil {
		switch {
		case errors.Is(err, apperr.ErrUnauthorized):
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid meeting ID format"))
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Meeting not found or already deleted"))
		default:
			slog.Error("delete meeting failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, faultBody("Error deleting meeting", err))
		}
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Meeting deleted successfully"})
}

// DeleteMeetings handles POST /api/meetings/deleteMany.
//
//	@Summary		Soft delete several meetings
//	@Tags			meetings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		[]string	true	"Meeting ids"
//	@Success		200		{object}	DeleteManyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/deleteMany [post]
func (h *Handler) DeleteMeetings(w http.ResponseWriter, r *http.Request) {
	const badInput = "Invalid input: Expected array of meeting IDs"

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var ids []string
	if err := json.NewDecoder(r.Body).Decode(&ids); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(badInput))
		return
	}

	n, err := h.svc.SoftDeleteMany(r.Context(), caller(r), ids)
	if err != nil {
		if errors.Is(err, apperr.ErrUnauthorized) {
			writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
			return
		}
		if errors.Is(err, apperr.ErrInvalidInput) {
			writeJSON(w, http.StatusBadRequest, errorBody(badInput))
			return
		}
		slog.Error("delete meetings failed", slog.Int("count", len(ids)), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, faultBody("Error deleting meetings", err))
		return
	}
	writeJSON(w, http.StatusOK, DeleteManyResponse{Message: "Meetings deleted successfully", DeletedCount: n})
}

// GetMeetingCalendar handles GET /api/meetings/view/{id}/ics.
//
//	@Summary		Export one meeting as an iCalendar file
//	@Tags			meetings
//	@Produce		text/calendar
//	@Param			id	path		string	true	"Meeting id"
//	@Success		200	{string}	string
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/meetings/view/{id}/ics [get]
func (h *Handler) GetMeetingCalendar(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	entry, err := h.svc.Calendar(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			writeJSON(w, http.StatusNotFound, errorBody("Meeting not found"))
		case errors.Is(err, apperr.ErrInvalidInput) && !primitive.IsValidObjectID(id):
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid meeting ID format"))
		case errors.Is(err, apperr.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, errResponse{Message: "Meeting date time cannot be exported", Error: err.Error()})
		default:
			slog.Error("export meeting failed", slog.String("id", id), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, faultBody("Error fetching meeting", err))
		}
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="meeting-`+entry.View.ID.Hex()+`.ics"`)
	if err := writeCalendar(w, entry); err != nil {
		slog.Error("encode calendar failed", slog.String("id", id), slog.String("error", err.Error()))
	}
}
