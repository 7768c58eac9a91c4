package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agendly/agendly/internal/event_bus"
	"github.com/agendly/agendly/internal/utils"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultScanInterval is the period of the background scan.
const DefaultScanInterval = 60 * time.Second

// recordTimeout bounds how long recording a delivered reminder may take once
// the scan itself has been cancelled.
const recordTimeout = 10 * time.Second

var errNotDue = errors.New("reminder is not due")

// ScanResult summarises one scan.
type ScanResult struct {
	Candidates int
	Sent       int
	Skipped    int
	Failed     int
}

// Dispatcher sends due reminders. Each reminder moves PENDING -> DISPATCHING -> SENT;
// a failed dispatch leaves it PENDING for the next scan.
type Dispatcher struct {
	store    DispatchStore
	planner  *Planner
	email    EmailSender
	links    *LinkGenerator
	clock    utils.Clock
	eventBus *event_bus.EventBus
	interval time.Duration

	// scans of one dispatcher run one at a time
	scanMu sync.Mutex

	mu         sync.Mutex
	cron       *cron.Cron
	cancelScan context.CancelFunc
}

func NewDispatcher(
	store DispatchStore,
	planner *Planner,
	email EmailSender,
	links *LinkGenerator,
	clock utils.Clock,
	eventBus *event_bus.EventBus,
	interval time.Duration,
) *Dispatcher {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	return &Dispatcher{
		store:    store,
		planner:  planner,
		email:    email,
		links:    links,
		clock:    clock,
		eventBus: eventBus,
		interval: interval,
	}
}

// Scan dispatches every reminder due at the clock's current time. Failures of
// single reminders are logged and counted; only a failing lookup fails the scan.
func (d *Dispatcher) Scan(ctx context.Context) (ScanResult, error) {
	d.scanMu.Lock()
	defer d.scanMu.Unlock()

	now := d.clock.Now()
	candidates, err := d.store.FindDueUnsentReminders(ctx, now, d.planner.GraceWindow())
	if err != nil {
		return ScanResult{}, fmt.Errorf("failed to find due reminders: %w", err)
	}

	result := ScanResult{Candidates: len(candidates)}
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			log.Infof("reminder scan interrupted, %d reminders left for the next scan", len(candidates)-result.Sent-result.Skipped-result.Failed)
			break
		}

		err := d.dispatch(ctx, candidate, now)
		reminderLog := log.WithFields(log.Fields{
			"reminderId": candidate.Reminder.Id,
			"eventUid":   candidate.Reminder.EventUID,
			"method":     candidate.Reminder.Method,
		})
		switch {
		case err == nil:
			result.Sent++
		case errors.Is(err, errNotDue):
			result.Skipped++
		case errors.Is(err, ErrAlreadySent):
			reminderLog.Debug("reminder already handled elsewhere")
			result.Skipped++
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrReminderNotFound):
			reminderLog.Debugf("skipping reminder: %v", err)
			result.Skipped++
		case errors.Is(err, ErrConfiguration):
			reminderLog.Warnf("skipping reminder: %v", err)
			result.Skipped++
		default:
			reminderLog.Errorf("failed to dispatch reminder: %v", err)
			result.Failed++
		}
	}

	if result.Sent > 0 || result.Failed > 0 {
		log.Infof("reminder scan: %d candidates, %d sent, %d skipped, %d failed",
			result.Candidates, result.Sent, result.Skipped, result.Failed)
	}
	return result, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, due DueReminder, now time.Time) error {
	reminder := due.Reminder
	if reminder.IsSent {
		return ErrAlreadySent
	}

	occurrence, ok, err := d.planner.DueOccurrence(due.Event, reminder.TimeOffsetMinutes, now)
	if err != nil {
		return err
	}
	if !ok {
		return errNotDue
	}

	var generatedLink *string
	switch reminder.Method {
	case MethodEmail:
		if due.User.Email == "" {
			return fmt.Errorf("%w: user %d has no email address", ErrConfiguration, due.User.Id)
		}
		subject, body := emailMessage(due.Event, occurrence, due.User)
		if err := d.email.SendEmail(ctx, due.User.Email, subject, body); err != nil {
			if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrDeliveryFailure) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrDeliveryFailure, err)
		}
	case MethodMessagingLink:
		if due.User.Phone == "" {
			return fmt.Errorf("%w: user %d has no phone number", ErrConfiguration, due.User.Id)
		}
		link, err := d.links.Generate(due.User.Phone, messagingText(due.Event, occurrence, due.User))
		if err != nil {
			return err
		}
		generatedLink = &link
	default:
		return fmt.Errorf("%w: unknown method %q", ErrInvalidReminder, reminder.Method)
	}

	// The notification is out; cancelling the scan must not lose that fact.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := d.store.MarkReminderSent(recordCtx, reminder.Id, now, generatedLink); err != nil {
		if errors.Is(err, ErrAlreadySent) {
			log.Warnf("reminder %d was delivered twice, another dispatcher marked it first", reminder.Id)
		}
		return err
	}
	log.Debugf("reminder %d sent for occurrence %s", reminder.Id, occurrence.Key)

	if d.eventBus != nil {
		err := d.eventBus.Publish(event_bus.NewEvent(recordCtx, event_bus.ReminderSentType, event_bus.ReminderSent{
			ReminderId:    reminder.Id,
			UserId:        due.User.Id,
			EventUID:      reminder.EventUID,
			OccurrenceKey: occurrence.Key,
			Method:        string(reminder.Method),
			SentAt:        now,
		}))
		if err != nil {
			log.Errorf("failed to publish reminder %d sent: %v", reminder.Id, err)
		}
	}
	return nil
}

// Start schedules Scan every interval. Overlapping runs are skipped.
func (d *Dispatcher) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return errors.New("reminder dispatcher already started")
	}

	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	scanCtx, cancelScan := context.WithCancel(context.Background())
	_, err := c.AddFunc(fmt.Sprintf("@every %s", d.interval), func() {
		if _, err := d.Scan(scanCtx); err != nil {
			log.Errorf("reminder scan failed: %v", err)
		}
	})
	if err != nil {
		cancelScan()
		return fmt.Errorf("failed to schedule reminder scan: %w", err)
	}
	c.Start()
	d.cron = c
	d.cancelScan = cancelScan
	log.Infof("reminder dispatcher started, scanning every %s", d.interval)
	return nil
}

// Stop prevents new scans and waits for a running one to finish. When ctx
// expires first the running scan is cancelled between reminders.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	c, cancelScan := d.cron, d.cancelScan
	d.cron, d.cancelScan = nil, nil
	d.mu.Unlock()
	if c == nil {
		return nil
	}
	defer cancelScan()

	stopped := c.Stop()
	select {
	case <-stopped.Done():
		log.Info("reminder dispatcher stopped")
		return nil
	case <-ctx.Done():
		cancelScan()
		<-stopped.Done()
		return fmt.Errorf("reminder dispatcher stop: %w", ctx.Err())
	}
}
