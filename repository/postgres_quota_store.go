package repository

import (
	"context"
	"database/sql"
	"errors"
	"face-insight-api/logger"
	"face-insight-api/model"
	"time"

	"github.com/sirupsen/logrus"
)

// PostgresQuotaStore keeps quota records in the quota_records table. Each
// CheckAndConsume holds the row lock for its pair until commit.
type PostgresQuotaStore struct {
	DB *sql.DB
}

func NewPostgresQuotaStore(db *sql.DB) *PostgresQuotaStore {
	return &PostgresQuotaStore{DB: db}
}

func (s *PostgresQuotaStore) CheckAndConsume(ctx context.Context, identityKey string, tier model.TierSpec, now time.Time) (model.Admission, error) {
	log := logger.Log.WithFields(logrus.Fields{"identity": identityKey, "tier": tier.Name})

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		log.WithError(err).Error("Failed to begin quota transaction")
		return model.Admission{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO quota_records (identity_key, tier_name, limit_count, used, window_reset_at)
		VALUES ($1, $2, $3, 0, $4) ON CONFLICT (identity_key, tier_name) DO NOTHING`,
		identityKey, tier.Name, tier.Limit, now.Add(tier.Window))
	if err != nil {
		log.WithError(err).Error("Failed to create quota record")
		return model.Admission{}, err
	}

	var (
		used    int
		resetAt time.Time
	)
	err = tx.QueryRowContext(ctx, `SELECT used, window_reset_at FROM quota_records
		WHERE identity_key = $1 AND tier_name = $2 FOR UPDATE`, identityKey, tier.Name).Scan(&used, &resetAt)
	if err != nil {
		log.WithError(err).Error("Failed to lock quota record")
		return model.Admission{}, err
	}

	if !now.Before(resetAt) {
		used = 0
		resetAt = now.Add(tier.Window)
	}
	admitted := used < tier.Limit
	if admitted {
		used++
	}

	_, err = tx.ExecContext(ctx, `UPDATE quota_records SET used = $3, window_reset_at = $4, limit_count = $5
		WHERE identity_key = $1 AND tier_name = $2`, identityKey, tier.Name, used, resetAt, tier.Limit)
	if err != nil {
		log.WithError(err).Error("Failed to update quota record")
		return model.Admission{}, err
	}
	if err := tx.Commit(); err != nil {
		log.WithError(err).Error("Failed to commit quota transaction")
		return model.Admission{}, err
	}

	return admission(tier, admitted, used, resetAt.In(now.Location())), nil
}

func (s *PostgresQuotaStore) Get(ctx context.Context, identityKey, tierName string) (*model.QuotaRecord, error) {
	rec := &model.QuotaRecord{}
	err := s.DB.QueryRowContext(ctx, `SELECT identity_key, tier_name, limit_count, used, window_reset_at
		FROM quota_records WHERE identity_key = $1 AND tier_name = $2`, identityKey, tierName).
		Scan(&rec.IdentityKey, &rec.TierName, &rec.Limit, &rec.Used, &rec.WindowResetAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuotaNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *PostgresQuotaStore) Reset(ctx context.Context, identityKey, tierName string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM quota_records WHERE identity_key = $1 AND tier_name = $2`, identityKey, tierName)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrQuotaNotFound
	}
	return nil
}

func (s *PostgresQuotaStore) List(ctx context.Context) ([]model.QuotaRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT identity_key, tier_name, limit_count, used, window_reset_at
		FROM quota_records ORDER BY identity_key, tier_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.QuotaRecord
	for rows.Next() {
		var rec model.QuotaRecord
		if err := rows.Scan(&rec.IdentityKey, &rec.TierName, &rec.Limit, &rec.Used, &rec.WindowResetAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
