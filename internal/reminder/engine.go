package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/clock"
	"github.com/phrazzld/nudge/internal/config"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/redact"
	"github.com/phrazzld/nudge/internal/schedule"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/phrazzld/nudge/internal/store"
)

// Job names as registered with the scheduler.
const (
	JobDueReminders  = "due-reminders"
	JobOverdue       = "overdue"
	JobMorningDigest = "morning-digest"
	JobEveningDigest = "evening-digest"
	JobRetention     = "retention"
)

// Config holds the cadence and behavior of the reminder jobs. Wall-clock
// schedules are read in the engine clock's location.
type Config struct {
	DueInterval     time.Duration
	DueWindow       time.Duration
	OverdueInterval time.Duration
	Morning         schedule.Daily
	Evening         schedule.Daily
	Cleanup         schedule.Weekly
	RetentionMonths int

	// OverdueIncludesReminded makes the overdue sweep consider tasks that
	// already received a due reminder.
	OverdueIncludesReminded bool
}

// DefaultConfig returns the stock job settings: due reminders every minute
// over a one-minute window, overdue checks hourly, digests at 08:00 and 21:00,
// and retention on Sunday at midnight keeping one month.
func DefaultConfig() Config {
	return Config{
		DueInterval:     time.Minute,
		DueWindow:       time.Minute,
		OverdueInterval: time.Hour,
		Morning:         schedule.Daily{Hour: 8},
		Evening:         schedule.Daily{Hour: 21},
		Cleanup:         schedule.Weekly{Weekday: time.Sunday},
		RetentionMonths: 1,
	}
}

// ConfigFromSettings converts the loaded reminder settings into a Config.
func ConfigFromSettings(s config.ReminderConfig) (Config, error) {
	cfg := DefaultConfig()
	if s.DueInterval > 0 {
		cfg.DueInterval = s.DueInterval
	}
	if s.DueWindow > 0 {
		cfg.DueWindow = s.DueWindow
	}
	if s.OverdueInterval > 0 {
		cfg.OverdueInterval = s.OverdueInterval
	}
	if s.RetentionMonths > 0 {
		cfg.RetentionMonths = s.RetentionMonths
	}
	cfg.OverdueIncludesReminded = s.OverdueIncludesReminded

	var err error
	if s.MorningAt != "" {
		if cfg.Morning.Hour, cfg.Morning.Minute, err = schedule.ParseClock(s.MorningAt); err != nil {
			return Config{}, fmt.Errorf("morning_at: %w", err)
		}
	}
	if s.EveningAt != "" {
		if cfg.Evening.Hour, cfg.Evening.Minute, err = schedule.ParseClock(s.EveningAt); err != nil {
			return Config{}, fmt.Errorf("evening_at: %w", err)
		}
	}
	if s.CleanupAt != "" {
		if cfg.Cleanup.Hour, cfg.Cleanup.Minute, err = schedule.ParseClock(s.CleanupAt); err != nil {
			return Config{}, fmt.Errorf("cleanup_at: %w", err)
		}
	}
	if s.CleanupWeekday != "" {
		if cfg.Cleanup.Weekday, err = schedule.ParseWeekday(s.CleanupWeekday); err != nil {
			return Config{}, fmt.Errorf("cleanup_weekday: %w", err)
		}
	}
	return cfg, nil
}

// Report summarizes one job invocation. Every candidate ends up counted in
// exactly one of Sent, Skipped or Failed.
type Report struct {
	Candidates int
	Sent       int
	Skipped    int
	Failed     int

	// Purged is the number of notifications removed by the retention job.
	Purged int64
}

func (r Report) attrs() []any {
	return []any{
		slog.Int("candidates", r.Candidates),
		slog.Int("sent", r.Sent),
		slog.Int("skipped", r.Skipped),
		slog.Int("failed", r.Failed),
	}
}

// Engine runs the reminder jobs against the task, user and notification
// stores.
type Engine struct {
	tasks         store.TaskStore
	users         store.UserStore
	notifications service.NotificationService
	composer      *Composer
	clock         clock.Clock
	cfg           Config
	logger        *slog.Logger

	// dueMu guards dueCursor, the end of the range the last successful due
	// sweep covered.
	dueMu     sync.Mutex
	dueCursor time.Time
}

// NewEngine creates an Engine. It returns an error if a dependency is
// missing.
func NewEngine(
	tasks store.TaskStore,
	users store.UserStore,
	notifications service.NotificationService,
	composer *Composer,
	clk clock.Clock,
	cfg Config,
	logger *slog.Logger,
) (*Engine, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if users == nil {
		return nil, errors.New("user store cannot be nil")
	}
	if notifications == nil {
		return nil, errors.New("notification service cannot be nil")
	}
	if clk == nil {
		return nil, errors.New("clock cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if composer == nil {
		composer = NewComposer(nil, 0, logger)
	}
	if cfg.RetentionMonths <= 0 {
		cfg.RetentionMonths = 1
	}

	return &Engine{
		tasks:         tasks,
		users:         users,
		notifications: notifications,
		composer:      composer,
		clock:         clk,
		cfg:           cfg,
		logger:        logger.With(slog.String("component", "reminder_engine")),
	}, nil
}

// Jobs returns the engine's five jobs with their configured schedules.
func (e *Engine) Jobs() []schedule.Job {
	return []schedule.Job{
		{Name: JobDueReminders, Schedule: schedule.Every(e.cfg.DueInterval), Run: e.runner(e.DueReminders)},
		{Name: JobOverdue, Schedule: schedule.Every(e.cfg.OverdueInterval), Run: e.runner(e.Overdue)},
		{Name: JobMorningDigest, Schedule: e.cfg.Morning, Run: e.runner(e.MorningDigest)},
		{Name: JobEveningDigest, Schedule: e.cfg.Evening, Run: e.runner(e.EveningDigest)},
		{Name: JobRetention, Schedule: e.cfg.Cleanup, Run: e.runner(e.Retention)},
	}
}

func (e *Engine) runner(fn func(context.Context) (Report, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		report, err := fn(ctx)
		log := e.log(ctx)
		if err != nil {
			return err
		}
		attrs := report.attrs()
		if report.Purged > 0 {
			attrs = append(attrs, slog.Int64("purged", report.Purged))
		}
		log.InfoContext(ctx, "job finished", attrs...)
		return nil
	}
}

// log prefers the job-scoped logger the scheduler stores in ctx.
func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, e.logger)
}

// window is a same-day slice [From, To) of task times.
type window struct {
	Date domain.Date
	From domain.TimeOfDay
	To   domain.TimeOfDay
}

// dueWindows splits the instants [from, to) into same-day windows. A range
// that crosses midnight yields one window per calendar day it touches.
func dueWindows(from, to time.Time) []window {
	first, last := domain.DateOf(from), domain.DateOf(to)
	start, end := domain.TimeOf(from), domain.TimeOf(to)
	if first == last {
		return []window{{Date: first, From: start, To: end}}
	}

	windows := []window{{Date: first, From: start, To: domain.EndOfDay}}
	for d := first.AddDays(1); d.Before(last); d = d.AddDays(1) {
		windows = append(windows, window{Date: d, From: 0, To: domain.EndOfDay})
	}
	if end > 0 {
		windows = append(windows, window{Date: last, From: 0, To: end})
	}
	return windows
}

// maxDueCatchUp bounds how far back a due sweep reaches to close a gap left
// by a late or failed tick. Anything older is left to the overdue sweep.
const maxDueCatchUp = time.Hour

// dueRange returns the instants [from, to) the due sweep covers at now. The
// range starts where the previous successful sweep ended, so consecutive
// sweeps leave no gap even when a tick fires late.
func (e *Engine) dueRange(now time.Time) (time.Time, time.Time) {
	e.dueMu.Lock()
	cursor := e.dueCursor
	e.dueMu.Unlock()

	from := now
	if cursor.Before(now) && now.Sub(cursor) <= maxDueCatchUp {
		from = cursor
	}
	return from, now.Add(e.cfg.DueWindow)
}

func (e *Engine) advanceDueCursor(to time.Time) {
	e.dueMu.Lock()
	defer e.dueMu.Unlock()
	if to.After(e.dueCursor) {
		e.dueCursor = to
	}
}

// DueReminders sends a TASK_REMINDER for every task due within the due
// window that has not been reminded yet, then marks the task as reminded.
func (e *Engine) DueReminders(ctx context.Context) (Report, error) {
	now := e.clock.Now()
	log := e.log(ctx)

	from, to := e.dueRange(now)
	var tasks []*domain.Task
	for _, w := range dueWindows(from, to) {
		found, err := e.tasks.FindDueSoon(ctx, w.Date, w.From, w.To)
		if err != nil {
			return Report{}, fmt.Errorf("find tasks due on %s between %s and %s: %w", w.Date, w.From, w.To, err)
		}
		tasks = append(tasks, found...)
	}
	e.advanceDueCursor(to)
	log.DebugContext(ctx, "checking due tasks",
		slog.Time("now", now),
		slog.Time("from", from),
		slog.Time("to", to),
		slog.Int("count", len(tasks)))

	users := newUserCache(e.users)
	return sweep(ctx, log, tasks, taskAttrs, func(ctx context.Context, task *domain.Task) (bool, error) {
		return e.remind(ctx, users, task)
	})
}

func (e *Engine) remind(ctx context.Context, users *userCache, task *domain.Task) (bool, error) {
	sent, err := e.notifications.HasBeenSent(ctx, task.UserID, task.ID, domain.NotificationTaskReminder)
	if err != nil {
		return false, fmt.Errorf("check previous reminder: %w", err)
	}
	if sent {
		return false, nil
	}

	user, err := users.get(ctx, task.UserID)
	if err != nil {
		return false, err
	}

	msg := e.composer.ReminderMessage(ctx, task)
	_, err = e.notifications.CreateAndDeliver(ctx, user, msg.Title, msg.Body,
		domain.NotificationTaskReminder, domain.RefID(task.ID))
	if errors.Is(err, service.ErrAlreadyNotified) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create reminder: %w", err)
	}

	if err := e.tasks.MarkReminderSent(ctx, task.ID); err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}

	e.log(ctx).InfoContext(ctx, "task reminder sent",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", user.ID.String()),
		slog.String("address", redact.Address(user.Address())))
	return true, nil
}

// Overdue sends a TASK_OVERDUE for every pending task of today whose time has
// passed. It never touches the reminder flag.
func (e *Engine) Overdue(ctx context.Context) (Report, error) {
	now := e.clock.Now()
	log := e.log(ctx)

	tasks, err := e.tasks.FindOverdue(ctx, domain.DateOf(now), domain.TimeOf(now), e.cfg.OverdueIncludesReminded)
	if err != nil {
		return Report{}, fmt.Errorf("find overdue tasks: %w", err)
	}

	users := newUserCache(e.users)
	return sweep(ctx, log, tasks, taskAttrs, func(ctx context.Context, task *domain.Task) (bool, error) {
		sent, err := e.notifications.HasBeenSent(ctx, task.UserID, task.ID, domain.NotificationTaskOverdue)
		if err != nil {
			return false, fmt.Errorf("check previous overdue notification: %w", err)
		}
		if sent {
			return false, nil
		}

		user, err := users.get(ctx, task.UserID)
		if err != nil {
			return false, err
		}

		msg := e.composer.OverdueMessage(task)
		_, err = e.notifications.CreateAndDeliver(ctx, user, msg.Title, msg.Body,
			domain.NotificationTaskOverdue, domain.RefID(task.ID))
		if errors.Is(err, service.ErrAlreadyNotified) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("create overdue notification: %w", err)
		}
		return true, nil
	})
}

// MorningDigest greets every user with the number of tasks pending today.
func (e *Engine) MorningDigest(ctx context.Context) (Report, error) {
	now := e.clock.Now()
	today := domain.DateOf(now)

	users, err := e.users.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list users: %w", err)
	}

	return sweep(ctx, e.log(ctx), users, userAttrs, func(ctx context.Context, user *domain.User) (bool, error) {
		pending, err := e.tasks.CountByStatus(ctx, user.ID, today, domain.TaskStatusPending)
		if err != nil {
			return false, fmt.Errorf("count pending tasks: %w", err)
		}

		msg := e.composer.MorningMessage(ctx, pending)
		return e.broadcast(ctx, user, msg)
	})
}

// EveningDigest summarizes today's completed and pending tasks for every
// user.
func (e *Engine) EveningDigest(ctx context.Context) (Report, error) {
	now := e.clock.Now()
	today := domain.DateOf(now)

	users, err := e.users.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list users: %w", err)
	}

	return sweep(ctx, e.log(ctx), users, userAttrs, func(ctx context.Context, user *domain.User) (bool, error) {
		completed, err := e.tasks.CountByStatus(ctx, user.ID, today, domain.TaskStatusCompleted)
		if err != nil {
			return false, fmt.Errorf("count completed tasks: %w", err)
		}
		pending, err := e.tasks.CountByStatus(ctx, user.ID, today, domain.TaskStatusPending)
		if err != nil {
			return false, fmt.Errorf("count pending tasks: %w", err)
		}

		msg := e.composer.EveningMessage(completed, pending)
		return e.broadcast(ctx, user, msg)
	})
}

// broadcast sends a digest. Digests carry no reference, so they are never
// deduplicated.
func (e *Engine) broadcast(ctx context.Context, user *domain.User, msg Message) (bool, error) {
	_, err := e.notifications.CreateAndDeliver(ctx, user, msg.Title, msg.Body, domain.NotificationMotivational, nil)
	if err != nil {
		return false, fmt.Errorf("create digest: %w", err)
	}
	return true, nil
}

// Retention deletes every user's read notifications older than the retention
// period. Unread notifications are kept regardless of age.
func (e *Engine) Retention(ctx context.Context) (Report, error) {
	now := e.clock.Now()
	cutoff := now.AddDate(0, -e.cfg.RetentionMonths, 0)

	users, err := e.users.ListAll(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("list users: %w", err)
	}

	var purged int64
	report, err := sweep(ctx, e.log(ctx), users, userAttrs, func(ctx context.Context, user *domain.User) (bool, error) {
		n, err := e.notifications.PurgeOld(ctx, user.ID, cutoff)
		if err != nil {
			return false, fmt.Errorf("purge notifications: %w", err)
		}
		purged += n
		return n > 0, nil
	})
	report.Purged = purged
	return report, err
}

// sweep applies handle to every item. handle reports whether something was
// sent; an error counts the item as failed and is logged. The job context is
// checked between items, and each item runs on a context that is not
// cancelled with it so a started item completes.
func sweep[T any](
	ctx context.Context,
	log *slog.Logger,
	items []T,
	attrs func(T) []any,
	handle func(context.Context, T) (bool, error),
) (Report, error) {
	report := Report{Candidates: len(items)}
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		sent, err := handle(context.WithoutCancel(ctx), item)
		switch {
		case err != nil:
			report.Failed++
			log.ErrorContext(ctx, "failed to process item",
				append(attrs(item), slog.String("error", redact.Error(err)))...)
		case sent:
			report.Sent++
		default:
			report.Skipped++
		}
	}
	return report, nil
}

func taskAttrs(t *domain.Task) []any {
	return []any{
		slog.String("task_id", t.ID.String()),
		slog.String("user_id", t.UserID.String()),
	}
}

func userAttrs(u *domain.User) []any {
	return []any{
		slog.String("user_id", u.ID.String()),
		slog.String("address", redact.Address(u.Address())),
	}
}

// userCache memoizes user lookups for one invocation.
type userCache struct {
	store store.UserStore
	users map[uuid.UUID]*domain.User
}

func newUserCache(s store.UserStore) *userCache {
	return &userCache{store: s, users: make(map[uuid.UUID]*domain.User)}
}

func (c *userCache) get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := c.users[id]; ok {
		return u, nil
	}
	u, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	c.users[id] = u
	return u, nil
}
