package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/platform/sqlite"
	"github.com/phrazzld/nudge/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = domain.Date{Year: 2024, Month: time.May, Day: 14}

type fixture struct {
	ctx           context.Context
	db            *sqlx.DB
	tasks         *sqlite.TaskStore
	notifications *sqlite.NotificationStore
	users         *sqlite.UserStore
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return fixture{
		ctx:           ctx,
		db:            db,
		tasks:         sqlite.NewTaskStore(db, nil),
		notifications: sqlite.NewNotificationStore(db, nil),
		users:         sqlite.NewUserStore(db, nil),
	}
}

func (f fixture) user(t *testing.T, email string) *domain.User {
	t.Helper()
	user, err := domain.NewUser(email)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(f.ctx, user))
	return user
}

func (f fixture) task(t *testing.T, userID uuid.UUID, date domain.Date, at string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(userID, "task at "+at, date, tod(t, at), domain.PriorityHigh)
	require.NoError(t, err)
	require.NoError(t, f.tasks.Create(f.ctx, task))
	return task
}

func (f fixture) notify(
	t *testing.T,
	userID uuid.UUID,
	nt domain.NotificationType,
	ref *uuid.UUID,
	at time.Time,
) *domain.Notification {
	t.Helper()
	n, err := domain.NewNotification(userID, "title", "message", nt, ref, at)
	require.NoError(t, err)
	require.NoError(t, f.notifications.Create(f.ctx, n))
	return n
}

func tod(t *testing.T, s string) domain.TimeOfDay {
	t.Helper()
	v, err := domain.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func ids(tasks []*domain.Task) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, task.ID)
	}
	return out
}

func TestUserStore(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	f.user(t, "bob@example.com")

	got, err := f.users.GetByID(f.ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = f.users.GetByID(f.ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	dup, err := domain.NewUser("alice@example.com")
	require.NoError(t, err)
	assert.ErrorIs(t, f.users.Create(f.ctx, dup), store.ErrEmailExists)

	all, err := f.users.ListAll(f.ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestTaskStore_RoundTrip(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	task := f.task(t, user.ID, day, "09:30:00")
	task.Description = "quarterly numbers"
	require.NoError(t, f.tasks.Update(f.ctx, task))

	got, err := f.tasks.GetByID(f.ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, "quarterly numbers", got.Description)
	assert.Equal(t, day, got.Date)
	assert.Equal(t, "09:30:00", got.Time.String())
	assert.Equal(t, domain.PriorityHigh, got.Priority)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.False(t, got.ReminderSent)

	require.NoError(t, f.tasks.MarkReminderSent(f.ctx, task.ID))
	got, err = f.tasks.GetByID(f.ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, got.ReminderSent)

	got.Reschedule(day.AddDays(1), got.Time)
	require.NoError(t, f.tasks.Update(f.ctx, got))
	got, err = f.tasks.GetByID(f.ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, got.ReminderSent, "reschedule re-arms the reminder")

	assert.ErrorIs(t, f.tasks.MarkReminderSent(f.ctx, uuid.New()), store.ErrTaskNotFound)
	_, err = f.tasks.GetByID(f.ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	orphan, err := domain.NewTask(uuid.New(), "orphan", day, tod(t, "10:00:00"), domain.PriorityLow)
	require.NoError(t, err)
	assert.ErrorIs(t, f.tasks.Create(f.ctx, orphan), store.ErrInvalidEntity)
}

func TestTaskStore_FindDueSoon(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")

	atStart := f.task(t, user.ID, day, "10:00:00")
	inside := f.task(t, user.ID, day, "10:00:59")
	f.task(t, user.ID, day, "10:01:00")
	f.task(t, user.ID, day, "09:59:59")
	f.task(t, user.ID, day.AddDays(1), "10:00:30")
	reminded := f.task(t, user.ID, day, "10:00:10")
	completed := f.task(t, user.ID, day, "10:00:20")
	inProgress := f.task(t, user.ID, day, "10:00:40")

	require.NoError(t, f.tasks.MarkReminderSent(f.ctx, reminded.ID))
	require.NoError(t, completed.TransitionTo(domain.TaskStatusCompleted))
	require.NoError(t, f.tasks.Update(f.ctx, completed))
	require.NoError(t, inProgress.TransitionTo(domain.TaskStatusInProgress))
	require.NoError(t, f.tasks.Update(f.ctx, inProgress))

	got, err := f.tasks.FindDueSoon(f.ctx, day, tod(t, "10:00:00"), tod(t, "10:01:00"))
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{atStart.ID, inProgress.ID, inside.ID}, ids(got))

	late := f.task(t, user.ID, day, "23:59:59")
	got, err = f.tasks.FindDueSoon(f.ctx, day, tod(t, "23:59:30"), domain.EndOfDay)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{late.ID}, ids(got))

	got, err = f.tasks.FindDueSoon(f.ctx, day.AddDays(2), tod(t, "00:00:00"), domain.EndOfDay)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTaskStore_FindOverdue(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")

	past := f.task(t, user.ID, day, "08:00:00")
	reminded := f.task(t, user.ID, day, "08:30:00")
	f.task(t, user.ID, day, "12:00:00")
	f.task(t, user.ID, day.AddDays(-1), "08:00:00")
	inProgress := f.task(t, user.ID, day, "07:00:00")

	require.NoError(t, f.tasks.MarkReminderSent(f.ctx, reminded.ID))
	require.NoError(t, inProgress.TransitionTo(domain.TaskStatusInProgress))
	require.NoError(t, f.tasks.Update(f.ctx, inProgress))

	got, err := f.tasks.FindOverdue(f.ctx, day, tod(t, "11:00:00"), false)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{past.ID}, ids(got))

	got, err = f.tasks.FindOverdue(f.ctx, day, tod(t, "11:00:00"), true)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{past.ID, reminded.ID}, ids(got))
}

func TestTaskStore_CountByStatus(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	other := f.user(t, "o@example.com")

	f.task(t, user.ID, day, "08:00:00")
	f.task(t, user.ID, day, "09:00:00")
	done := f.task(t, user.ID, day, "10:00:00")
	f.task(t, user.ID, day.AddDays(1), "10:00:00")
	f.task(t, other.ID, day, "10:00:00")

	require.NoError(t, done.TransitionTo(domain.TaskStatusCompleted))
	require.NoError(t, f.tasks.Update(f.ctx, done))

	pending, err := f.tasks.CountByStatus(f.ctx, user.ID, day, domain.TaskStatusPending)
	require.NoError(t, err)
	assert.Equal(t, 2, pending)

	completed, err := f.tasks.CountByStatus(f.ctx, user.ID, day, domain.TaskStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, 1, completed)
}

func TestNotificationStore_IdempotencyKey(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	task := f.task(t, user.ID, day, "09:00:00")
	now := time.Now()

	f.notify(t, user.ID, domain.NotificationTaskReminder, domain.RefID(task.ID), now)

	dup, err := domain.NewNotification(user.ID, "again", "", domain.NotificationTaskReminder, domain.RefID(task.ID), now)
	require.NoError(t, err)
	err = f.notifications.Create(f.ctx, dup)
	assert.ErrorIs(t, err, store.ErrNotificationExists)
	assert.True(t, store.IsDuplicateError(err))

	// Same reference, different type is a different key.
	f.notify(t, user.ID, domain.NotificationTaskOverdue, domain.RefID(task.ID), now)

	// Broadcasts have no reference and are never deduplicated.
	f.notify(t, user.ID, domain.NotificationMotivational, nil, now)
	f.notify(t, user.ID, domain.NotificationMotivational, nil, now)

	exists, err := f.notifications.Exists(f.ctx, user.ID, task.ID, domain.NotificationTaskReminder)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.notifications.Exists(f.ctx, user.ID, uuid.New(), domain.NotificationTaskReminder)
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := f.notifications.ListAll(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	reminders, err := f.notifications.ListByType(f.ctx, user.ID, domain.NotificationTaskReminder)
	require.NoError(t, err)
	require.Len(t, reminders, 1)
	require.NotNil(t, reminders[0].ReferenceID)
	assert.Equal(t, task.ID, *reminders[0].ReferenceID)
}

func TestNotificationStore_ListingAndReadState(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	other := f.user(t, "o@example.com")
	base := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)

	var created []*domain.Notification
	for i := 0; i < 25; i++ {
		created = append(created, f.notify(t, user.ID, domain.NotificationSystem, nil, base.Add(time.Duration(i)*time.Minute)))
	}
	f.notify(t, other.ID, domain.NotificationSystem, nil, base)

	latest, err := f.notifications.ListLatest(f.ctx, user.ID, 0)
	require.NoError(t, err)
	require.Len(t, latest, store.DefaultLatestLimit)
	assert.Equal(t, created[24].ID, latest[0].ID)
	assert.Equal(t, created[5].ID, latest[19].ID)
	for i := 1; i < len(latest); i++ {
		assert.False(t, latest[i].CreatedAt.After(latest[i-1].CreatedAt), "newest first")
	}

	require.NoError(t, f.notifications.MarkRead(f.ctx, created[0].ID))
	got, err := f.notifications.GetByID(f.ctx, created[0].ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	assert.True(t, got.CreatedAt.Equal(created[0].CreatedAt))

	count, err := f.notifications.CountUnread(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 24, count)

	changed, err := f.notifications.MarkAllRead(f.ctx, user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 24, changed)

	unread, err := f.notifications.ListUnread(f.ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, unread)

	otherCount, err := f.notifications.CountUnread(f.ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, otherCount, "other users are untouched")

	assert.ErrorIs(t, f.notifications.MarkRead(f.ctx, uuid.New()), store.ErrNotificationNotFound)
}

func TestNotificationStore_PurgeReadOlderThan(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	now := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	cutoff := now.AddDate(0, -1, 0)

	oldRead := f.notify(t, user.ID, domain.NotificationSystem, nil, cutoff.Add(-time.Hour))
	oldUnread := f.notify(t, user.ID, domain.NotificationSystem, nil, cutoff.Add(-time.Hour))
	recentRead := f.notify(t, user.ID, domain.NotificationSystem, nil, cutoff.Add(time.Hour))
	require.NoError(t, f.notifications.MarkRead(f.ctx, oldRead.ID))
	require.NoError(t, f.notifications.MarkRead(f.ctx, recentRead.ID))

	purged, err := f.notifications.PurgeReadOlderThan(f.ctx, user.ID, cutoff)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = f.notifications.GetByID(f.ctx, oldRead.ID)
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
	_, err = f.notifications.GetByID(f.ctx, oldUnread.ID)
	assert.NoError(t, err, "unread notifications are kept")
	_, err = f.notifications.GetByID(f.ctx, recentRead.ID)
	assert.NoError(t, err, "recent notifications are kept")
}

func TestNotificationStore_WithTx(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, "u@example.com")
	n := f.notify(t, user.ID, domain.NotificationSystem, nil, time.Now())
	rollback := errors.New("rollback")

	err := store.RunInTransaction(f.ctx, f.notifications.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txStore := f.notifications.WithTx(tx)
		require.NoError(t, txStore.Delete(ctx, n.ID))
		return rollback
	})
	assert.ErrorIs(t, err, rollback)

	_, err = f.notifications.GetByID(f.ctx, n.ID)
	assert.NoError(t, err, "delete was rolled back")

	err = store.RunInTransaction(f.ctx, f.notifications.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return f.notifications.WithTx(tx).Delete(ctx, n.ID)
	})
	require.NoError(t, err)
	_, err = f.notifications.GetByID(f.ctx, n.ID)
	assert.ErrorIs(t, err, store.ErrNotificationNotFound)
}
