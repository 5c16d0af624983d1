package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/accountkeeper/internal/common"
	"github.com/dmitrijs2005/accountkeeper/internal/dbx"
	"github.com/dmitrijs2005/accountkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, date_of_birth, verify,
		email_verify_token, forgot_password_token,
		bio, location, website, username, avatar, cover_photo,
		created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	query :=
		`INSERT INTO users (id, name, email, password_hash, date_of_birth, verify,
		 email_verify_token, forgot_password_token, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 `

	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Name, u.Email, u.PasswordHash, u.DateOfBirth, int16(u.Verify),
		u.EmailVerifyToken, u.ForgotPasswordToken, u.CreatedAt, u.UpdatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) SetEmailVerifyToken(ctx context.Context, id, token string, now time.Time) error {
	query :=
		`UPDATE users SET email_verify_token = $2, updated_at = $3
		 WHERE id = $1
		 `
	return r.execOne(ctx, common.ErrorNotFound, query, id, token, now)
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id, expectedToken string, now time.Time) error {
	query :=
		`UPDATE users SET verify = $3, email_verify_token = '', updated_at = $4
		 WHERE id = $1 AND email_verify_token = $2 AND email_verify_token <> ''
		 `
	return r.execOne(ctx, common.ErrorConflict, query, id, expectedToken, int16(models.Verified), now)
}

func (r *PostgresRepository) SetForgotPasswordToken(ctx context.Context, id, token string, now time.Time) error {
	query :=
		`UPDATE users SET forgot_password_token = $2, updated_at = $3
		 WHERE id = $1
		 `
	return r.execOne(ctx, common.ErrorNotFound, query, id, token, now)
}

func (r *PostgresRepository) SetPassword(ctx context.Context, id, hash, expectedToken string, now time.Time) error {
	query :=
		`UPDATE users SET password_hash = $2, forgot_password_token = '', updated_at = $4
		 WHERE id = $1 AND forgot_password_token = $3 AND forgot_password_token <> ''
		 `
	return r.execOne(ctx, common.ErrorConflict, query, id, hash, expectedToken, now)
}

func (r *PostgresRepository) ReplacePassword(ctx context.Context, id, hash string, now time.Time) error {
	query :=
		`UPDATE users SET password_hash = $2, forgot_password_token = '', updated_at = $3
		 WHERE id = $1
		 `
	return r.execOne(ctx, common.ErrorNotFound, query, id, hash, now)
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, p models.ProfilePatch, now time.Time) (*models.User, error) {
	query :=
		`UPDATE users SET
		 name = COALESCE($2, name),
		 date_of_birth = COALESCE($3, date_of_birth),
		 bio = COALESCE($4, bio),
		 location = COALESCE($5, location),
		 website = COALESCE($6, website),
		 username = COALESCE($7, username),
		 avatar = COALESCE($8, avatar),
		 cover_photo = COALESCE($9, cover_photo),
		 updated_at = $10
		 WHERE id = $1
		 RETURNING ` + userColumns

	return scanUser(r.db.QueryRowContext(ctx, query, id,
		p.Name, p.DateOfBirth, p.Bio, p.Location, p.Website, p.Username, p.Avatar, p.CoverPhoto, now))
}

// execOne runs an UPDATE that must touch exactly one row; miss is returned otherwise.
func (r *PostgresRepository) execOne(ctx context.Context, miss error, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return miss
	}
	return nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	var verify int16
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.DateOfBirth, &verify,
		&u.EmailVerifyToken, &u.ForgotPasswordToken,
		&u.Bio, &u.Location, &u.Website, &u.Username, &u.Avatar, &u.CoverPhoto,
		&u.CreatedAt, &u.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	u.Verify = models.VerifyStatus(verify)
	return u, nil
}
