package reminder_test

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/nudge/internal/clock"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/mocks"
	"github.com/phrazzld/nudge/internal/platform/logger"
	"github.com/phrazzld/nudge/internal/platform/sqlite"
	"github.com/phrazzld/nudge/internal/reminder"
	"github.com/phrazzld/nudge/internal/schedule"
	"github.com/phrazzld/nudge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	today    = domain.Date{Year: 2024, Month: time.May, Day: 14}
	tomorrow = domain.Date{Year: 2024, Month: time.May, Day: 15}
)

type push struct {
	address string
	n       *domain.Notification
}

type recordingChannel struct {
	mu     sync.Mutex
	pushes []push
}

func (c *recordingChannel) Push(_ context.Context, address string, n *domain.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pushes = append(c.pushes, push{address: address, n: n})
}

func (c *recordingChannel) all() []push {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]push, len(c.pushes))
	copy(out, c.pushes)
	return out
}

type harness struct {
	ctx       context.Context
	tasks     *sqlite.TaskStore
	users     *sqlite.UserStore
	svc       service.NotificationService
	channel   *recordingChannel
	clock     *clock.Manual
	generator *mocks.MockGenerator
	log       *slog.Logger
	logs      *logger.TestLogBuffer
	engine    *reminder.Engine
}

type option func(*reminder.Config)

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	ctx := context.Background()
	log, logs := logger.NewTestLogger()

	db, err := sqlite.Open(ctx, ":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h := &harness{
		ctx:       ctx,
		tasks:     sqlite.NewTaskStore(db, log),
		users:     sqlite.NewUserStore(db, log),
		channel:   &recordingChannel{},
		clock:     clock.NewManual(time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC)),
		generator: mocks.NewMockGeneratorWithText("Go get it!"),
		log:       log,
		logs:      logs,
	}
	h.svc, err = service.NewNotificationService(sqlite.NewNotificationStore(db, log), h.channel, h.clock, log)
	require.NoError(t, err)

	cfg := reminder.DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	composer := reminder.NewComposer(h.generator, 50*time.Millisecond, log)
	h.engine, err = reminder.NewEngine(h.tasks, h.users, h.svc, composer, h.clock, cfg, log)
	require.NoError(t, err)
	return h
}

func (h *harness) at(hour, minute, second int) {
	h.clock.Set(time.Date(2024, 5, 14, hour, minute, second, 0, time.UTC))
}

func (h *harness) user(t *testing.T, email string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(email)
	require.NoError(t, err)
	require.NoError(t, h.users.Create(h.ctx, u))
	return u
}

func (h *harness) task(t *testing.T, u *domain.User, title string, date domain.Date, at string) *domain.Task {
	t.Helper()
	tod, err := domain.ParseTimeOfDay(at)
	require.NoError(t, err)
	task, err := domain.NewTask(u.ID, title, date, tod, domain.PriorityMedium)
	require.NoError(t, err)
	require.NoError(t, h.tasks.Create(h.ctx, task))
	return task
}

func (h *harness) setStatus(t *testing.T, task *domain.Task, status domain.TaskStatus) {
	t.Helper()
	require.NoError(t, task.TransitionTo(status))
	require.NoError(t, h.tasks.Update(h.ctx, task))
}

func (h *harness) notifications(t *testing.T, u *domain.User) []*domain.Notification {
	t.Helper()
	list, err := h.svc.ListNotifications(h.ctx, u.ID, service.FilterAll)
	require.NoError(t, err)
	return list
}

func (h *harness) reloaded(t *testing.T, task *domain.Task) *domain.Task {
	t.Helper()
	got, err := h.tasks.GetByID(h.ctx, task.ID)
	require.NoError(t, err)
	return got
}

func TestNewEngine_Validation(t *testing.T) {
	clk := clock.NewSystem(nil)
	tasks := &mocks.MockTaskStore{}
	users := mocks.NewMockUserStore()
	svc := &mocks.MockNotificationService{}

	_, err := reminder.NewEngine(nil, users, svc, nil, clk, reminder.DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = reminder.NewEngine(tasks, nil, svc, nil, clk, reminder.DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = reminder.NewEngine(tasks, users, nil, nil, clk, reminder.DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = reminder.NewEngine(tasks, users, svc, nil, nil, reminder.DefaultConfig(), nil)
	assert.Error(t, err)

	engine, err := reminder.NewEngine(tasks, users, svc, nil, clk, reminder.DefaultConfig(), nil)
	require.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestDueReminders_SendsOncePerTask(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	task := h.task(t, alice, "Write report", today, "09:00:30")

	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 1, Sent: 1}, report)

	list := h.notifications(t, alice)
	require.Len(t, list, 1)
	n := list[0]
	assert.Equal(t, "⏰ Time for: Write report", n.Title)
	assert.Equal(t, "Go get it!", n.Message)
	assert.Equal(t, domain.NotificationTaskReminder, n.Type)
	require.NotNil(t, n.ReferenceID)
	assert.Equal(t, task.ID, *n.ReferenceID)
	assert.False(t, n.IsRead)

	pushes := h.channel.all()
	require.Len(t, pushes, 1)
	assert.Equal(t, "alice@example.com", pushes[0].address)
	assert.Equal(t, n.ID, pushes[0].n.ID)

	assert.True(t, h.reloaded(t, task).ReminderSent)

	prompt, ok := h.generator.LastPrompt()
	require.True(t, ok)
	assert.Equal(t, "Write report", prompt.TaskTitle)

	// The next poll inside the same window finds nothing left to send.
	h.at(9, 0, 20)
	report, err = h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Candidates)
	assert.Len(t, h.notifications(t, alice), 1)
	assert.Len(t, h.channel.all(), 1)
}

func TestDueReminders_WindowBounds(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")

	atStart := h.task(t, alice, "at start", today, "09:00:00")
	inside := h.task(t, alice, "inside", today, "09:00:59")
	h.task(t, alice, "at end", today, "09:01:00")
	h.task(t, alice, "just before", today, "08:59:59")
	h.task(t, alice, "other day", tomorrow, "09:00:10")
	done := h.task(t, alice, "completed", today, "09:00:10")
	h.setStatus(t, done, domain.TaskStatusCompleted)
	started := h.task(t, alice, "in progress", today, "09:00:20")
	h.setStatus(t, started, domain.TaskStatusInProgress)

	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Sent)

	var refs []uuid.UUID
	for _, n := range h.notifications(t, alice) {
		refs = append(refs, *n.ReferenceID)
	}
	assert.ElementsMatch(t, []uuid.UUID{atStart.ID, inside.ID, started.ID}, refs)
}

func TestDueReminders_TaskCaughtByEveryPollInWindow(t *testing.T) {
	// A first poll catches a task at t when it runs in (t-window, t].
	for _, poll := range []int{1, 30, 59, 60} {
		h := newHarness(t)
		alice := h.user(t, "alice@example.com")
		h.task(t, alice, "Stretch", today, "09:01:00")

		h.clock.Set(time.Date(2024, 5, 14, 9, 0, 0, 0, time.UTC).Add(time.Duration(poll) * time.Second))
		report, err := h.engine.DueReminders(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Sent, "poll at +%ds", poll)
	}

	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	h.task(t, alice, "Stretch", today, "09:01:00")
	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent, "a poll exactly one window early misses the task")
}

func TestDueReminders_CrossesMidnight(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	late := h.task(t, alice, "late", today, "23:59:45")
	early := h.task(t, alice, "early", tomorrow, "00:00:15")
	h.task(t, alice, "too early", tomorrow, "00:00:30")

	h.at(23, 59, 30)
	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Sent)

	assert.True(t, h.reloaded(t, late).ReminderSent)
	assert.True(t, h.reloaded(t, early).ReminderSent)
}

func TestDueReminders_LateTickClosesGap(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	task := h.task(t, alice, "Stretch", today, "09:01:00")

	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Sent)

	// The next tick lands 1.5s after the previous window closed.
	h.clock.Set(time.Date(2024, 5, 14, 9, 1, 1, 500_000_000, time.UTC))
	report, err = h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 1, Sent: 1}, report)

	assert.Len(t, h.notifications(t, alice), 1)
	assert.True(t, h.reloaded(t, task).ReminderSent)
}

func TestDueReminders_CatchUpIsBounded(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	stale := h.task(t, alice, "stale", today, "10:00:00")

	_, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)

	h.at(11, 30, 0)
	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Candidates, "tasks older than the catch-up limit are left to the overdue sweep")
	assert.False(t, h.reloaded(t, stale).ReminderSent)
}

func TestDueReminders_ConcurrentPollsSendOnce(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	task := h.task(t, alice, "Call mom", today, "09:00:30")

	const polls = 8
	reports := make([]reminder.Report, polls)
	errs := make([]error, polls)
	var wg sync.WaitGroup
	for i := range polls {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reports[i], errs[i] = h.engine.DueReminders(h.ctx)
		}()
	}
	wg.Wait()

	sent := 0
	for i := range polls {
		require.NoError(t, errs[i])
		assert.Zero(t, reports[i].Failed)
		sent += reports[i].Sent
	}
	assert.Equal(t, 1, sent)
	assert.Len(t, h.notifications(t, alice), 1)
	assert.Len(t, h.channel.all(), 1)
	assert.True(t, h.reloaded(t, task).ReminderSent)
}

func TestDueReminders_AlreadyNotifiedIsSkipped(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	task := h.task(t, alice, "Call mom", today, "09:00:30")

	_, err := h.svc.CreateAndDeliver(h.ctx, alice, "earlier", "sent by another poll",
		domain.NotificationTaskReminder, domain.RefID(task.ID))
	require.NoError(t, err)

	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 1, Skipped: 1}, report)
	assert.Len(t, h.notifications(t, alice), 1)
	assert.Len(t, h.channel.all(), 1)
	assert.False(t, h.reloaded(t, task).ReminderSent)
	assert.Equal(t, 0, h.generator.CallCount())
}

func TestDueReminders_RescheduledTaskIsNotRenotified(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	task := h.task(t, alice, "Water plants", today, "09:00:30")

	_, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)

	task = h.reloaded(t, task)
	require.True(t, task.ReminderSent)
	tod, err := domain.ParseTimeOfDay("10:00:30")
	require.NoError(t, err)
	task.Reschedule(today, tod)
	require.NoError(t, h.tasks.Update(h.ctx, task))

	// The reminder for this task already exists, so the re-armed task is
	// skipped rather than notified twice.
	h.at(10, 0, 0)
	report, err := h.engine.DueReminders(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 1, Skipped: 1}, report)
	assert.Len(t, h.notifications(t, alice), 1)
}

func TestDueReminders_GeneratorFallback(t *testing.T) {
	tests := []struct {
		name string
		gen  *mocks.MockGenerator
	}{
		{name: "generation error", gen: mocks.MockGeneratorThatFails()},
		{name: "content blocked", gen: mocks.MockGeneratorWithContentBlocked()},
		{name: "timeout", gen: mocks.MockGeneratorThatHangs()},
		{name: "blank text", gen: mocks.NewMockGeneratorWithText("   ")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.generator.GenerateShortMessageFn = tc.gen.GenerateShortMessage
			alice := h.user(t, "alice@example.com")
			h.task(t, alice, "Write report", today, "09:00:30")

			report, err := h.engine.DueReminders(h.ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, report.Sent)

			list := h.notifications(t, alice)
			require.Len(t, list, 1)
			assert.Contains(t, list[0].Message, `"Write report"`)
			assert.True(t, h.logs.HasMessage("message generation failed, using fallback") ||
				h.logs.HasMessage("message generation returned empty text, using fallback"))
		})
	}
}

func TestOverdue(t *testing.T) {
	t.Run("notifies pending past tasks once and leaves the flag alone", func(t *testing.T) {
		h := newHarness(t)
		alice := h.user(t, "alice@example.com")
		past := h.task(t, alice, "Pay rent", today, "08:00")
		h.task(t, alice, "Later", today, "10:00")
		h.task(t, alice, "Yesterday", domain.Date{Year: 2024, Month: time.May, Day: 13}, "08:00")
		done := h.task(t, alice, "Done", today, "07:00")
		h.setStatus(t, done, domain.TaskStatusCompleted)
		started := h.task(t, alice, "Started", today, "07:30")
		h.setStatus(t, started, domain.TaskStatusInProgress)

		report, err := h.engine.Overdue(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, reminder.Report{Candidates: 1, Sent: 1}, report)

		list := h.notifications(t, alice)
		require.Len(t, list, 1)
		assert.Equal(t, "❗ Overdue: Pay rent", list[0].Title)
		assert.Equal(t, domain.NotificationTaskOverdue, list[0].Type)
		assert.Equal(t, past.ID, *list[0].ReferenceID)
		assert.False(t, h.reloaded(t, past).ReminderSent)

		h.at(10, 0, 0)
		report, err = h.engine.Overdue(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Skipped)
		assert.Len(t, h.notifications(t, alice), 1)
	})

	t.Run("reminded tasks are excluded by default", func(t *testing.T) {
		h := newHarness(t)
		alice := h.user(t, "alice@example.com")
		task := h.task(t, alice, "Pay rent", today, "08:00")
		require.NoError(t, h.tasks.MarkReminderSent(h.ctx, task.ID))

		report, err := h.engine.Overdue(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Candidates)
	})

	t.Run("reminded tasks are included when configured", func(t *testing.T) {
		h := newHarness(t, func(c *reminder.Config) { c.OverdueIncludesReminded = true })
		alice := h.user(t, "alice@example.com")
		task := h.task(t, alice, "Pay rent", today, "08:00")
		require.NoError(t, h.tasks.MarkReminderSent(h.ctx, task.ID))

		report, err := h.engine.Overdue(h.ctx)
		require.NoError(t, err)
		assert.Equal(t, reminder.Report{Candidates: 1, Sent: 1}, report)
	})
}

func TestMorningDigest(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	bob := h.user(t, "bob@example.com")
	h.task(t, alice, "One", today, "10:00")
	h.task(t, alice, "Two", today, "11:00")
	h.task(t, alice, "Tomorrow", tomorrow, "11:00")

	h.at(8, 0, 0)
	report, err := h.engine.MorningDigest(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 2, Sent: 2}, report)

	aliceList := h.notifications(t, alice)
	require.Len(t, aliceList, 1)
	assert.Equal(t, "Go get it!", aliceList[0].Message)
	assert.Equal(t, domain.NotificationMotivational, aliceList[0].Type)
	assert.Nil(t, aliceList[0].ReferenceID)

	bobList := h.notifications(t, bob)
	require.Len(t, bobList, 1)
	assert.True(t, strings.HasPrefix(bobList[0].Message, "Good morning!"))

	assert.Equal(t, 1, h.generator.CallCount(), "no generator call without pending tasks")
	prompt, _ := h.generator.LastPrompt()
	assert.Equal(t, 2, prompt.Pending)

	// Digests carry no reference and are not deduplicated.
	_, err = h.engine.MorningDigest(h.ctx)
	require.NoError(t, err)
	assert.Len(t, h.notifications(t, alice), 2)
}

func TestEveningDigest(t *testing.T) {
	h := newHarness(t)
	idle := h.user(t, "idle@example.com")
	champ := h.user(t, "champ@example.com")
	busy := h.user(t, "busy@example.com")

	for _, title := range []string{"a", "b"} {
		h.setStatus(t, h.task(t, champ, title, today, "10:00"), domain.TaskStatusCompleted)
	}
	h.setStatus(t, h.task(t, busy, "done", today, "10:00"), domain.TaskStatusCompleted)
	h.task(t, busy, "open 1", today, "11:00")
	h.task(t, busy, "open 2", today, "12:00")

	h.at(21, 0, 0)
	report, err := h.engine.EveningDigest(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, reminder.Report{Candidates: 3, Sent: 3}, report)

	message := func(u *domain.User) string {
		list := h.notifications(t, u)
		require.Len(t, list, 1)
		assert.Equal(t, "🌙 Today's summary", list[0].Title)
		return list[0].Message
	}
	assert.Contains(t, message(idle), "No tasks today")
	assert.Contains(t, message(champ), "all 2 tasks")
	assert.Contains(t, message(busy), "You completed 1 task, but 2 still pending")
	assert.Equal(t, 0, h.generator.CallCount())
}

func TestRetention(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")

	create := func(at time.Time, read bool) *domain.Notification {
		h.clock.Set(at)
		n, err := h.svc.CreateAndDeliver(h.ctx, alice, "title", "message", domain.NotificationSystem, nil)
		require.NoError(t, err)
		if read {
			require.NoError(t, h.svc.MarkRead(h.ctx, alice.ID, n.ID))
		}
		return n
	}
	old := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	oldRead := create(old, true)
	oldUnread := create(old, false)
	recentRead := create(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), true)

	h.clock.Set(time.Date(2024, 5, 19, 0, 0, 0, 0, time.UTC))
	report, err := h.engine.Retention(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.Purged)
	assert.Equal(t, 1, report.Sent)

	var kept []uuid.UUID
	for _, n := range h.notifications(t, alice) {
		kept = append(kept, n.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{oldUnread.ID, recentRead.ID}, kept)
	assert.NotContains(t, kept, oldRead.ID)
}

func TestEngine_JobsRunThroughScheduler(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "alice@example.com")
	h.task(t, alice, "Write report", today, "09:00:30")

	sched := schedule.New(h.clock, h.log)
	for _, job := range h.engine.Jobs() {
		require.NoError(t, sched.Register(job))
	}
	assert.Equal(t, []string{
		reminder.JobDueReminders,
		reminder.JobOverdue,
		reminder.JobMorningDigest,
		reminder.JobEveningDigest,
		reminder.JobRetention,
	}, sched.Jobs())

	require.NoError(t, sched.Trigger(h.ctx, reminder.JobDueReminders))
	assert.Len(t, h.notifications(t, alice), 1)
	assert.True(t, h.logs.HasMessage("job finished"))
}
