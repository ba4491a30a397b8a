package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/futari/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, password_hash, nickname, profile_url, code, sub, auth_provider, push_token, birthday, created_at, updated_at`

func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var sub, provider, pushToken sql.NullString
	var birthday sql.NullTime
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Nickname,
		&user.ProfileURL, &user.Code, &sub, &provider, &pushToken,
		&birthday, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Sub = sub.String
	user.AuthProvider = provider.String
	user.PushToken = pushToken.String
	if birthday.Valid {
		user.Birthday = &birthday.Time
	}
	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`,
		email,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindBySub は外部IdPのsubでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindBySub(ctx context.Context, sub string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE sub = $1`,
		sub,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by sub: %w", err)
	}
	return user, nil
}

// FindByCode は公開コードでユーザーを検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByCode(ctx context.Context, code string) (*model.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE code = $1`,
		code,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by code: %w", err)
	}
	return user, nil
}

// Create はユーザーを作成する。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12)`,
		user.ID, user.Email, user.PasswordHash, user.Nickname,
		user.ProfileURL, user.Code, user.Sub, user.AuthProvider, user.PushToken,
		user.Birthday, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdatePushToken はユーザーのプッシュトークンを更新する。
func (r *PostgresUserRepo) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET push_token = $1, updated_at = now() WHERE id = $2`,
		pushToken, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update push token: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// UpdateProfile はユーザーのプロフィールを部分更新する。nilのフィールドは維持する。
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID string, update model.ProfileUpdate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET
		   nickname    = COALESCE($1, nickname),
		   profile_url = COALESCE($2, profile_url),
		   birthday    = COALESCE($3, birthday),
		   updated_at  = now()
		 WHERE id = $4`,
		update.Nickname, update.ProfileURL, update.Birthday, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// Delete はユーザーを削除する。
func (r *PostgresUserRepo) Delete(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM users WHERE id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewUserNotFoundError()
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
