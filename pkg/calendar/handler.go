package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/agendly/agendly/internal/rest"
	"github.com/agendly/agendly/pkg/recurrence"
	"github.com/agendly/agendly/pkg/user"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	calendar *Service
}

type EventDTO struct {
	UID            string    `json:"uid"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Location       string    `json:"location"`
	Color          string    `json:"color"`
	StartTime      time.Time `json:"start"`
	EndTime        time.Time `json:"end"`
	RecurrenceRule string    `json:"recurrenceRule,omitempty"`
}

type InstanceDTO struct {
	OccurrenceKey string    `json:"occurrenceKey"`
	StartTime     time.Time `json:"start"`
	EndTime       time.Time `json:"end"`
	Event         EventDTO  `json:"event"`
}

func NewHandler(s *Service) *Handler {
	return &Handler{s}
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.RFC3339, r.URL.Query().Get("from"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid from (date) format", "'from' must be in RFC3339 format")
		return
	}
	to, err := time.Parse(time.RFC3339, r.URL.Query().Get("to"))
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid to (date) format", "'to' must be in RFC3339 format")
		return
	}

	instances, err := h.calendar.GetEvents(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	dtos := make([]InstanceDTO, 0, len(instances))
	for _, instance := range instances {
		dtos = append(dtos, InstanceDTO{
			OccurrenceKey: instance.OccurrenceKey,
			StartTime:     instance.StartTime,
			EndTime:       instance.EndTime,
			Event:         eventToDTO(instance.Event),
		})
	}
	log.Tracef("Instances returned: %d", len(dtos))
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	eventUid, ok := eventUidFromPath(w, r)
	if !ok {
		return
	}
	event, err := h.calendar.GetEvent(r.Context(), eventUid)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(event))
}

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var eventDTO EventDTO
	if err := json.NewDecoder(r.Body).Decode(&eventDTO); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	event, err := dtoToEvent(eventDTO)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.calendar.AddEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, eventToDTO(created))
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventUid, ok := eventUidFromPath(w, r)
	if !ok {
		return
	}
	var eventDTO EventDTO
	if err := json.NewDecoder(r.Body).Decode(&eventDTO); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	event, err := dtoToEvent(eventDTO)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	event.UID = eventUid

	modified, err := h.calendar.ModifyEvent(r.Context(), event)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, eventToDTO(modified))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	eventUid, ok := eventUidFromPath(w, r)
	if !ok {
		return
	}
	if err := h.calendar.DeleteEvent(r.Context(), eventUid); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func eventUidFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	eventUid, err := uuid.Parse(mux.Vars(r)["eventUid"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid event uid", err.Error())
		return uuid.Nil, false
	}
	return eventUid, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidEvent), errors.Is(err, recurrence.ErrInvalidRule), errors.Is(err, recurrence.ErrInvalidWindow):
		rest.WriteError(w, http.StatusBadRequest, "Invalid event", err.Error())
	case errors.Is(err, ErrEventNotFound):
		rest.WriteError(w, http.StatusNotFound, "Event not found", "")
	case errors.Is(err, recurrence.ErrExpansionLimitExceeded):
		rest.WriteError(w, http.StatusUnprocessableEntity, "Recurring event could not be expanded", err.Error())
	case errors.Is(err, user.ErrNoUser):
		rest.WriteError(w, http.StatusForbidden, "User not found", "")
	default:
		log.Errorf("calendar request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func eventToDTO(e Event) EventDTO {
	dto := EventDTO{
		UID:         e.UID.String(),
		Title:       e.Title,
		Description: e.Description,
		Location:    e.Location,
		Color:       e.Color,
		StartTime:   e.StartTime,
		EndTime:     e.EndTime,
	}
	if e.Recurrence != nil {
		dto.RecurrenceRule = e.Recurrence.String()
	}
	return dto
}

func dtoToEvent(dto EventDTO) (Event, error) {
	event := Event{
		Title:       dto.Title,
		Description: dto.Description,
		Location:    dto.Location,
		Color:       dto.Color,
		StartTime:   dto.StartTime,
		EndTime:     dto.EndTime,
	}
	if dto.UID != "" {
		uid, err := uuid.Parse(dto.UID)
		if err != nil {
			return Event{}, errors.Join(ErrInvalidEvent, err)
		}
		event.UID = uid
	}
	if dto.RecurrenceRule != "" {
		rule, err := recurrence.Parse(dto.RecurrenceRule)
		if err != nil {
			return Event{}, err
		}
		event.Recurrence = &rule
	}
	return event, nil
}
