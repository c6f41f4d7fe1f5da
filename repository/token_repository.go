// file: repository/token_repository.go

package repository

import (
	"context"
	"database/sql"
	"errors"
	"face-insight-api/logger"
	"face-insight-api/model"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var (
	ErrTokenNotFound  = errors.New("token record not found")
	ErrDuplicateToken = errors.New("token record with this jti already exists")
)

const uniqueViolation = "23505"

// ITokenRepository defines the contract for the issued-token block-list.
type ITokenRepository interface {
	Create(ctx context.Context, token *model.TokenRecord) error
	GetByJTIAndUser(ctx context.Context, jti string, userID int64) (*model.TokenRecord, error)
	Revoke(ctx context.Context, jti string, userID int64, at time.Time) error
	RevokeAllByUserID(ctx context.Context, userID int64, at time.Time) (int64, error)
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}

// TokenRepository implements ITokenRepository on PostgreSQL.
type TokenRepository struct {
	DB *sql.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{DB: db}
}

// Create inserts a new, non-revoked token record.
func (r *TokenRepository) Create(ctx context.Context, token *model.TokenRecord) error {
	log := logger.Log.WithFields(logrus.Fields{
		"jti":        token.JTI,
		"token_type": token.TokenType,
		"user_id":    token.UserID,
		"expires_at": token.ExpiresAt,
	})
	log.Info("Executing query to record an issued token")

	query := `INSERT INTO token_block_list (jti, token_type, user_id, is_revoked, expires_at)
		VALUES ($1, $2, $3, FALSE, $4) RETURNING token_id, created_at`
	err := r.DB.QueryRowContext(ctx, query, token.JTI, string(token.TokenType), token.UserID, token.ExpiresAt).
		Scan(&token.ID, &token.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			log.Warn("Token with this jti is already recorded")
			return ErrDuplicateToken
		}
		log.WithError(err).Error("Failed to execute record token query")
		return err
	}
	token.IsRevoked = false
	return nil
}

// GetByJTIAndUser retrieves the record identified by (jti, user_id).
func (r *TokenRepository) GetByJTIAndUser(ctx context.Context, jti string, userID int64) (*model.TokenRecord, error) {
	log := logger.Log.WithFields(logrus.Fields{"jti": jti, "user_id": userID})
	log.Debug("Executing query to get token by jti and user")

	token := &model.TokenRecord{}
	var tokenType string
	var revokedAt sql.NullTime
	query := `SELECT token_id, jti, token_type, user_id, is_revoked, expires_at, revoked_at, created_at
		FROM token_block_list WHERE jti = $1 AND user_id = $2`
	err := r.DB.QueryRowContext(ctx, query, jti, userID).Scan(
		&token.ID, &token.JTI, &tokenType, &token.UserID, &token.IsRevoked,
		&token.ExpiresAt, &revokedAt, &token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		log.WithError(err).Error("Failed to execute get token query")
		return nil, err
	}
	token.TokenType = model.TokenType(tokenType)
	if revokedAt.Valid {
		t := revokedAt.Time
		token.RevokedAt = &t
	}
	return token, nil
}

// Revoke marks the record identified by (jti, user_id) as revoked in a single
// conditional update. Revoking an already revoked record keeps its original
// revoked_at and succeeds.
func (r *TokenRepository) Revoke(ctx context.Context, jti string, userID int64, at time.Time) error {
	log := logger.Log.WithFields(logrus.Fields{"jti": jti, "user_id": userID})
	log.Info("Executing query to revoke a token")

	query := `UPDATE token_block_list
		SET is_revoked = TRUE, revoked_at = COALESCE(revoked_at, $3)
		WHERE jti = $1 AND user_id = $2
		RETURNING token_id`
	var id int64
	err := r.DB.QueryRowContext(ctx, query, jti, userID, at).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenNotFound
		}
		log.WithError(err).Error("Failed to execute revoke token query")
		return err
	}
	return nil
}

// RevokeAllByUserID revokes every non-revoked token owned by userID and
// returns how many records changed.
func (r *TokenRepository) RevokeAllByUserID(ctx context.Context, userID int64, at time.Time) (int64, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Executing query to revoke all tokens for a user")

	query := `UPDATE token_block_list SET is_revoked = TRUE, revoked_at = $2
		WHERE user_id = $1 AND NOT is_revoked`
	res, err := r.DB.ExecContext(ctx, query, userID, at)
	if err != nil {
		log.WithError(err).Error("Failed to execute revoke all tokens query")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.WithField("revoked", n).Info("Revoked tokens for user")
	return n, nil
}

// PurgeExpired physically deletes records that expired before the given time.
// Callers pass now minus the retention window so recent history is kept.
func (r *TokenRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	log := logger.Log.WithField("before", before)
	log.Info("Executing query to purge expired tokens")

	res, err := r.DB.ExecContext(ctx, `DELETE FROM token_block_list WHERE expires_at < $1`, before)
	if err != nil {
		log.WithError(err).Error("Failed to execute purge expired tokens query")
		return 0, err
	}
	return res.RowsAffected()
}
