package reminder

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agendly/agendly/internal/rest"
	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	reminders *Service
}

type CreateReminderRequest struct {
	Method            Method `json:"method"`
	TimeOffsetMinutes int    `json:"timeOffsetMinutes"`
}

type ReminderDTO struct {
	Id                int        `json:"id"`
	EventUID          string     `json:"eventUid"`
	Method            Method     `json:"method"`
	TimeOffsetMinutes int        `json:"timeOffsetMinutes"`
	IsSent            bool       `json:"isSent"`
	SentAt            *time.Time `json:"sentAt,omitempty"`
	GeneratedLink     *string    `json:"generatedLink,omitempty"`
	NextFireTime      *time.Time `json:"nextFireTime,omitempty"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{reminders: s}
}

func (h *Handler) CreateReminder(w http.ResponseWriter, r *http.Request) {
	eventUid, err := uuid.Parse(mux.Vars(r)["eventUid"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event uid", err.Error())
		return
	}
	var request CreateReminderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}

	created, err := h.reminders.CreateReminder(r.Context(), eventUid, request.Method, request.TimeOffsetMinutes)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

func (h *Handler) GetRemindersForEvent(w http.ResponseWriter, r *http.Request) {
	eventUid, err := uuid.Parse(mux.Vars(r)["eventUid"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event uid", err.Error())
		return
	}
	reminders, err := h.reminders.GetRemindersForEvent(r.Context(), eventUid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]ReminderDTO, 0, len(reminders))
	for _, reminder := range reminders {
		dtos = append(dtos, toDTO(reminder))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetReminder(w http.ResponseWriter, r *http.Request) {
	reminderId, ok := reminderIdFromPath(w, r)
	if !ok {
		return
	}
	reminder, err := h.reminders.GetReminder(r.Context(), reminderId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(reminder))
}

func (h *Handler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	reminderId, ok := reminderIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.reminders.DeleteReminder(r.Context(), reminderId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func reminderIdFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	reminderId, err := strconv.Atoi(mux.Vars(r)["reminderId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid reminder id", err.Error())
		return 0, false
	}
	return reminderId, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidReminder):
		rest.WriteError(w, http.StatusBadRequest, "Invalid reminder", err.Error())
	case errors.Is(err, ErrReminderNotFound):
		rest.WriteError(w, http.StatusNotFound, "Reminder not found", "")
	case errors.Is(err, calendar.ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, recurrence.ErrExpansionLimitExceeded):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Recurring event could not be expanded", err.Error())
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "User not found", "")
	default:
		log.Errorf("reminder request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toDTO(s ScheduledReminder) ReminderDTO {
	dto := ReminderDTO{
		Id:                s.Id,
		EventUID:          s.EventUID.String(),
		Method:            s.Method,
		TimeOffsetMinutes: s.TimeOffsetMinutes,
		IsSent:            s.IsSent,
		SentAt:            s.SentAt,
		GeneratedLink:     s.GeneratedLink,
	}
	if next, ok := s.NextFireTime.Get(); ok {
		dto.NextFireTime = &next
	}
	return dto
}
