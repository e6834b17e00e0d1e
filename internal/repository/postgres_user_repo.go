package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kota-pro/Scharade-HomePage/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用した会員リポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, name, email, password_hash, approved, portfolio_id, instagram_id, instagram_username, created_at`

// scanUser は1行分の会員レコードをmodel.Userに変換する。
func scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	var instagramID sql.NullString
	var instagramUsername string

	err := row.Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Approved, &user.PortfolioID,
		&instagramID, &instagramUsername, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if instagramID.Valid {
		user.Instagram = &model.InstagramIdentity{
			ID:       instagramID.String,
			Username: instagramUsername,
		}
	}

	return user, nil
}

// FindByID は指定IDの会員を取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}
	return user, nil
}

// FindByEmail は正規化済みemailで会員を検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1 AND email <> ''`, email)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}
	return user, nil
}

// FindByInstagramID はInstagramの外部IDで会員を検索する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByInstagramID(ctx context.Context, instagramID string) (*model.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE instagram_id = $1`, instagramID)

	user, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by instagram ID: %w", err)
	}
	return user, nil
}

// Create は会員を作成する。
// users_credentials_email_idxの一意制約違反はそのままエラーとして返る。
func (r *PostgresUserRepo) Create(ctx context.Context, user *model.User) error {
	var instagramID sql.NullString
	var instagramUsername string
	if user.Instagram != nil {
		instagramID = sql.NullString{String: user.Instagram.ID, Valid: true}
		instagramUsername = user.Instagram.Username
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password_hash, approved, portfolio_id, instagram_id, instagram_username, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		user.ID, user.Name, user.Email, user.PasswordHash,
		user.Approved, user.PortfolioID,
		instagramID, instagramUsername, user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateInstagramIdentity は既存会員のInstagram連携情報を書き換える。
func (r *PostgresUserRepo) UpdateInstagramIdentity(ctx context.Context, userID string, identity model.InstagramIdentity) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET instagram_id = $1, instagram_username = $2 WHERE id = $3`,
		identity.ID, identity.Username, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update instagram identity: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
