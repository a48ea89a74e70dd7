package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/phrazzld/nudge/internal/domain"
	"github.com/phrazzld/nudge/internal/store"
)

type userRow struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r userRow) toDomain() *domain.User {
	return &domain.User{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

// UserStore implements store.UserStore on SQLite.
type UserStore struct {
	db     sqlx.ExtContext
	logger *slog.Logger
}

// NewUserStore creates a UserStore.
func NewUserStore(db sqlx.ExtContext, logger *slog.Logger) *UserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserStore{db: db, logger: logger.With(slog.String("component", "user_store"))}
}

var _ store.UserStore = (*UserStore)(nil)

// Create implements store.UserStore.Create
func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}

	row := userRow{ID: user.ID, Email: user.Email, CreatedAt: user.CreatedAt.UTC(), UpdatedAt: user.UpdatedAt.UTC()}
	_, err := sqlx.NamedExecContext(ctx, s.db,
		`INSERT INTO users (id, email, created_at, updated_at) VALUES (:id, :email, :created_at, :updated_at)`, row)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrEmailExists, err)
		}
		return MapError(err)
	}
	return nil
}

// GetByID implements store.UserStore.GetByID
func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var row userRow
	err := sqlx.GetContext(ctx, s.db, &row, `SELECT id, email, created_at, updated_at FROM users WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrUserNotFound
		}
		return nil, err
	}
	return row.toDomain(), nil
}

// ListAll implements store.UserStore.ListAll
func (s *UserStore) ListAll(ctx context.Context) ([]*domain.User, error) {
	var rows []userRow
	err := sqlx.SelectContext(ctx, s.db, &rows, `SELECT id, email, created_at, updated_at FROM users ORDER BY created_at, id`)
	if err != nil {
		s.logger.Error("failed to list users", slog.String("error", err.Error()))
		return nil, fmt.Errorf("list users: %w", err)
	}

	users := make([]*domain.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toDomain())
	}
	return users, nil
}
