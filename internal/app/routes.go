package app

import (
	"net/http"

	"github.com/agendly/agendly/internal/rest"
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		rest.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// User management
	r.HandleFunc("/api/user", deps.UserHandler.CreateUser).Methods("POST")
	r.HandleFunc("/api/user/current", deps.UserHandler.CurrentUser).Methods("GET")
	r.HandleFunc("/api/user/current", deps.UserHandler.UpdateUser).Methods("PUT")

	// Calendar
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.GetEvents).Queries("from", "{from}", "to", "{to}").Methods("GET")
	r.HandleFunc("/api/calendar/event", deps.CalendarHandler.CreateEvent).Methods("POST")
	r.HandleFunc("/api/calendar/export.ics", deps.CalendarHandler.ExportICS).Methods("GET")
	r.HandleFunc("/api/calendar/event/{eventUid}", deps.CalendarHandler.GetEvent).Methods("GET")
	r.HandleFunc("/api/calendar/event/{eventUid}", deps.CalendarHandler.UpdateEvent).Methods("PUT")
	r.HandleFunc("/api/calendar/event/{eventUid}", deps.CalendarHandler.DeleteEvent).Methods("DELETE")

	// Reminders
	r.HandleFunc("/api/calendar/event/{eventUid}/reminder", deps.ReminderHandler.CreateReminder).Methods("POST")
	r.HandleFunc("/api/calendar/event/{eventUid}/reminder", deps.ReminderHandler.GetRemindersForEvent).Methods("GET")
	r.HandleFunc("/api/reminder/{reminderId}", deps.ReminderHandler.GetReminder).Methods("GET")
	r.HandleFunc("/api/reminder/{reminderId}", deps.ReminderHandler.DeleteReminder).Methods("DELETE")

	// Tasks
	r.HandleFunc("/api/task", deps.TaskHandler.ListTasks).Methods("GET")
	r.HandleFunc("/api/task", deps.TaskHandler.CreateTask).Methods("POST")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.GetTask).Methods("GET")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.UpdateTask).Methods("PUT")
	r.HandleFunc("/api/task/{taskId}", deps.TaskHandler.DeleteTask).Methods("DELETE")
}
