package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/studyroom_booking/internal/model"
	"github.com/Freeeeeet/studyroom_booking/internal/repository/base"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, code, email, full_name, password_hash, role, reputation, telegram_chat_id, created_at`

type UserRepository struct {
	*base.Repository
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Code,
		&user.Email,
		&user.FullName,
		&user.PasswordHash,
		&user.Role,
		&user.Reputation,
		&user.TelegramChatID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Create создаёт нового пользователя
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (code, email, full_name, password_hash, role, reputation)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.Conn(ctx).QueryRow(
		ctx, query,
		user.Code,
		strings.ToLower(user.Email),
		user.FullName,
		user.PasswordHash,
		user.Role,
		user.Reputation,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(r.Conn(ctx).QueryRow(ctx, query, arg))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := r.getOne(ctx, "id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetByCode ищет пользователя по номеру студента или сотрудника
func (r *UserRepository) GetByCode(ctx context.Context, code string) (*model.User, error) {
	user, err := r.getOne(ctx, "code = $1", strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("get user by code: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := r.getOne(ctx, "lower(email) = lower($1)", strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (r *UserRepository) GetByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	user, err := r.getOne(ctx, "telegram_chat_id = $1", chatID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram chat: %w", err)
	}
	return user, nil
}

// GetByIDs возвращает найденных пользователей, отсутствующие id пропускаются
func (r *UserRepository) GetByIDs(ctx context.Context, ids []int64) ([]*model.User, error) {
	if len(ids) == 0 {
		return []*model.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`

	rows, err := r.Conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get users by ids: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// List возвращает пользователей с ролью, или всех при пустой роли
func (r *UserRepository) List(ctx context.Context, role model.Role) ([]*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ($1 = '' OR role = $1) ORDER BY code`

	rows, err := r.Conn(ctx).Query(ctx, query, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	affected, err := r.ExecAffected(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

// SetTelegramChatID привязывает Telegram чат к пользователю с этим кодом
func (r *UserRepository) SetTelegramChatID(ctx context.Context, code string, chatID int64) (*model.User, error) {
	query := `
		UPDATE users
		SET telegram_chat_id = $1
		WHERE code = $2
		RETURNING ` + userColumns

	user, err := scanUser(r.Conn(ctx).QueryRow(ctx, query, chatID, strings.TrimSpace(code)))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("set telegram chat id: %w", err)
	}
	return user, nil
}

// AdjustReputation применяет delta с нижней границей 0 и пишет запись в журнал
// одним запросом. Возвращает nil, если пользователя нет
func (r *UserRepository) AdjustReputation(ctx context.Context, userID int64, delta int, reason string) (*model.ReputationChange, error) {
	query := `
		WITH updated AS (
			UPDATE users
			SET reputation = GREATEST(0, reputation + $2)
			WHERE id = $1
			RETURNING id, reputation
		)
		INSERT INTO reputation_changes (user_id, delta, reason, balance_after)
		SELECT id, $2, $3, reputation FROM updated
		RETURNING id, user_id, delta, reason, balance_after, created_at
	`

	var change model.ReputationChange
	err := r.Conn(ctx).QueryRow(ctx, query, userID, delta, reason).Scan(
		&change.ID,
		&change.UserID,
		&change.Delta,
		&change.Reason,
		&change.BalanceAfter,
		&change.CreatedAt,
	)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("adjust reputation: %w", err)
	}

	return &change, nil
}

func (r *UserRepository) ListReputationChanges(ctx context.Context, userID int64, limit int) ([]*model.ReputationChange, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, user_id, delta, reason, balance_after, created_at
		FROM reputation_changes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.Conn(ctx).Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list reputation changes: %w", err)
	}
	defer rows.Close()

	var changes []*model.ReputationChange
	for rows.Next() {
		var c model.ReputationChange
		if err := rows.Scan(&c.ID, &c.UserID, &c.Delta, &c.Reason, &c.BalanceAfter, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reputation change: %w", err)
		}
		changes = append(changes, &c)
	}

	return changes, rows.Err()
}

func (r *UserRepository) CreatePasswordReset(ctx context.Context, reset *model.PasswordReset) error {
	query := `INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)`

	if _, err := r.Conn(ctx).Exec(ctx, query, reset.Token, reset.UserID, reset.ExpiresAt); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (r *UserRepository) GetPasswordReset(ctx context.Context, token string) (*model.PasswordReset, error) {
	query := `SELECT token::text, user_id, expires_at, used_at FROM password_resets WHERE token = $1`

	var reset model.PasswordReset
	err := r.Conn(ctx).QueryRow(ctx, query, token).Scan(&reset.Token, &reset.UserID, &reset.ExpiresAt, &reset.UsedAt)
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get password reset: %w", err)
	}
	return &reset, nil
}

// MarkPasswordResetUsed возвращает false, если токен уже использован
func (r *UserRepository) MarkPasswordResetUsed(ctx context.Context, token string, at time.Time) (bool, error) {
	affected, err := r.ExecAffected(ctx,
		`UPDATE password_resets SET used_at = $1 WHERE token = $2 AND used_at IS NULL`, at, token)
	if err != nil {
		return false, fmt.Errorf("mark password reset used: %w", err)
	}
	return affected == 1, nil
}
