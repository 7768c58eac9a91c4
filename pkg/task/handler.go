package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agendly/agendly/internal/rest"
	"github.com/agendly/agendly/pkg/user"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type TaskDTO struct {
	Id          int        `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Done        bool       `json:"done"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	includeDone := false
	if raw := r.URL.Query().Get("includeDone"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			rest.WriteError(w, http.StatusBadRequest, "Invalid includeDone parameter", err.Error())
			return
		}
		includeDone = parsed
	}

	tasks, err := h.service.ListTasks(r.Context(), includeDone)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	dtos := make([]TaskDTO, 0, len(tasks))
	for _, task := range tasks {
		dtos = append(dtos, toDTO(task))
	}
	rest.WriteJSON(w, http.StatusOK, dtos)
}

func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskId, ok := taskIdFromPath(w, r)
	if !ok {
		return
	}
	task, err := h.service.GetTask(r.Context(), taskId)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(task))
}

func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var dto TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	created, err := h.service.CreateTask(r.Context(), fromDTO(dto))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusCreated, toDTO(created))
}

func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	taskId, ok := taskIdFromPath(w, r)
	if !ok {
		return
	}
	var dto TaskDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid request body format", err.Error())
		return
	}
	task := fromDTO(dto)
	task.Id = taskId

	updated, err := h.service.UpdateTask(r.Context(), task)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, toDTO(updated))
}

func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskId, ok := taskIdFromPath(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteTask(r.Context(), taskId); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func taskIdFromPath(w http.ResponseWriter, r *http.Request) (int, bool) {
	taskId, err := strconv.Atoi(mux.Vars(r)["taskId"])
	if err != nil {
		rest.WriteError(w, http.StatusBadRequest, "Invalid task id", err.Error())
		return 0, false
	}
	return taskId, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidTask):
		rest.WriteError(w, http.StatusBadRequest, "Invalid task", err.Error())
	case errors.Is(err, ErrTaskNotFound):
		rest.WriteError(w, http.StatusNotFound, "Task not found", "")
	case errors.Is(err, user.ErrNoUser):
		http.Error(w, "user not found", http.StatusForbidden)
	default:
		log.Errorf("task request failed: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toDTO(task Task) TaskDTO {
	return TaskDTO{
		Id:          task.Id,
		Title:       task.Title,
		Description: task.Description,
		DueDate:     task.DueDate,
		Done:        task.Done,
		CreatedAt:   task.CreatedAt,
	}
}

func fromDTO(dto TaskDTO) Task {
	return Task{
		Id:          dto.Id,
		Title:       dto.Title,
		Description: dto.Description,
		DueDate:     dto.DueDate,
		Done:        dto.Done,
	}
}
