package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/futari/internal/model"
)

// PostgresCoupleRepo はPostgreSQLを使用したカップルリポジトリ。
type PostgresCoupleRepo struct {
	db *sql.DB
}

// NewPostgresCoupleRepo はPostgresCoupleRepoを生成する。
func NewPostgresCoupleRepo(db *sql.DB) *PostgresCoupleRepo {
	return &PostgresCoupleRepo{db: db}
}

// FindActiveByUserID は指定ユーザーが属するカップルを取得する。
// 連携していない場合はnilを返す。
func (r *PostgresCoupleRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Couple, error) {
	couple := &model.Couple{}
	var anniversary sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_a_id, user_b_id, anniversary, created_at
		 FROM couples
		 WHERE user_a_id = $1 OR user_b_id = $1`,
		userID,
	).Scan(&couple.ID, &couple.UserAID, &couple.UserBID, &anniversary, &couple.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find couple by user ID: %w", err)
	}
	if anniversary.Valid {
		couple.Anniversary = &anniversary.Time
	}
	return couple, nil
}

// compile-time interface check
var _ CoupleRepository = (*PostgresCoupleRepo)(nil)
