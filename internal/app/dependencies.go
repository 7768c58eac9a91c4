package app

import (
	"github.com/agendly/agendly/internal/config"
	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/internal/utils"
	"github.com/agendly/agendly/pkg/calendar"
	"github.com/agendly/agendly/pkg/reminder"
	"github.com/agendly/agendly/pkg/task"
	"github.com/agendly/agendly/pkg/user"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Clock    utils.Clock
	EventBus *event_bus.EventBus

	UserService user.Service
	UserHandler *user.Handler

	CalendarRepository *calendar.RepositoryImpl
	CalendarService    *calendar.Service
	CalendarHandler    *calendar.Handler

	ReminderRepository *reminder.RepositoryImpl
	ReminderPlanner    *reminder.Planner
	ReminderService    *reminder.Service
	ReminderHandler    *reminder.Handler
	ReminderDispatcher *reminder.Dispatcher

	TaskService *task.Service
	TaskHandler *task.Handler

	unsubscribe []func()
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *pgxpool.Pool, cfg config.Application, bus *event_bus.EventBus) (*Dependencies, error) {
	deps := &Dependencies{
		Clock:    &utils.SystemClock{},
		EventBus: bus,
	}

	deps.UserService = user.NewUserService(user.NewUserRepo(db))
	deps.UserHandler = user.NewHandler(deps.UserService)

	deps.CalendarRepository = calendar.NewRepository(db)
	deps.CalendarService = calendar.NewService(deps.CalendarRepository, bus, cfg.Reminders.MaxExpansionIterations)
	deps.CalendarHandler = calendar.NewHandler(deps.CalendarService)

	emailSender, err := reminder.NewEmailSender(cfg.Email)
	if err != nil {
		return nil, err
	}
	deps.ReminderRepository = reminder.NewRepository(db)
	deps.ReminderPlanner = reminder.NewPlanner(cfg.Reminders.GraceWindow, cfg.Reminders.MaxExpansionIterations)
	deps.ReminderService = reminder.NewService(deps.ReminderRepository, deps.CalendarService, deps.ReminderPlanner, deps.Clock)
	deps.ReminderHandler = reminder.NewHandler(deps.ReminderService)
	deps.ReminderDispatcher = reminder.NewDispatcher(
		deps.ReminderRepository,
		deps.ReminderPlanner,
		emailSender,
		reminder.NewLinkGenerator(cfg.Messaging.LinkBase),
		deps.Clock,
		bus,
		cfg.Reminders.ScanInterval,
	)
	deps.unsubscribe = append(deps.unsubscribe, deps.ReminderService.SubscribeToEvents(bus))

	deps.TaskService = task.NewService(task.NewRepository(db))
	deps.TaskHandler = task.NewHandler(deps.TaskService)

	return deps, nil
}

// Close detaches event bus subscriptions.
func (d *Dependencies) Close() {
	for _, unsubscribe := range d.unsubscribe {
		unsubscribe()
	}
	d.unsubscribe = nil
}
