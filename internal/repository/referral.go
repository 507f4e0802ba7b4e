package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"UD_referral_bot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type referralRow struct {
	TelegramID             string `db:"telegram_id"`
	ReferralMessageChanged bool   `db:"referral_message_changed"`
}

type referralInfoRow struct {
	InfoRefID         *int64         `db:"info_ref_id"`
	RealName          sql.NullString `db:"real_name"`
	UserURLForMessage sql.NullString `db:"user_url_for_message"`
}

// GetDirectReferrals returns the users invited by referrerID.
func (r *Repository) GetDirectReferrals(ctx context.Context, referrerID string) ([]model.Referral, error) {
	query, args, err := squirrel.
		Select("u.telegram_id", "u.referral_message_changed").
		From("users u").
		Join("invitations i ON u.telegram_id = i.referral").
		Where(squirrel.Eq{"i.referrer": referrerID}).
		OrderBy("i.id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []referralRow
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get referrals: %w", err)
	}

	refs := make([]model.Referral, len(rows))
	for i, row := range rows {
		refs[i] = model.Referral{
			TelegramID:             row.TelegramID,
			ReferralMessageChanged: row.ReferralMessageChanged,
		}
	}

	return refs, nil
}

// UpsertReferralInfo sets the welcome-message payload of every user in telegramIDs,
// creating the referral_info row for users that do not have one yet.
func (r *Repository) UpsertReferralInfo(ctx context.Context, telegramIDs []string, info model.ReferralInfo) error {
	if len(telegramIDs) == 0 {
		return nil
	}

	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Select("telegram_id", "info_ref_id").
			From("users").
			Where("telegram_id = ANY(?)", pq.Array(telegramIDs)).
			Suffix("FOR UPDATE").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build users select query: %w", err)
		}

		var users []struct {
			TelegramID string `db:"telegram_id"`
			InfoRefID  *int64 `db:"info_ref_id"`
		}
		if err := tx.SelectContext(ctx, &users, query, args...); err != nil {
			return fmt.Errorf("failed to get users: %w", err)
		}

		for _, u := range users {
			if u.InfoRefID != nil {
				updateQuery, updateArgs, err := squirrel.
					Update("referral_info").
					SetMap(map[string]interface{}{
						"real_name":            info.RealName,
						"user_url_for_message": info.UserURLForMessage,
					}).
					Where(squirrel.Eq{"info_id": *u.InfoRefID}).
					PlaceholderFormat(squirrel.Dollar).
					ToSql()
				if err != nil {
					return fmt.Errorf("failed to build referral info update query: %w", err)
				}

				if _, err := tx.ExecContext(ctx, updateQuery, updateArgs...); err != nil {
					return fmt.Errorf("failed to update referral info: %w", err)
				}
				continue
			}

			insertQuery, insertArgs, err := squirrel.
				Insert("referral_info").
				Columns("real_name", "user_url_for_message").
				Values(info.RealName, info.UserURLForMessage).
				Suffix("RETURNING info_id").
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build referral info insert query: %w", err)
			}

			var infoID int64
			if err := tx.GetContext(ctx, &infoID, insertQuery, insertArgs...); err != nil {
				return fmt.Errorf("failed to insert referral info: %w", err)
			}

			linkQuery, linkArgs, err := squirrel.
				Update("users").
				Set("info_ref_id", infoID).
				Where(squirrel.Eq{"telegram_id": u.TelegramID}).
				PlaceholderFormat(squirrel.Dollar).
				ToSql()
			if err != nil {
				return fmt.Errorf("failed to build user link query: %w", err)
			}

			if _, err := tx.ExecContext(ctx, linkQuery, linkArgs...); err != nil {
				return fmt.Errorf("failed to link referral info: %w", err)
			}
		}

		return nil
	})
}

// GetReferralInfo returns ErrUserNotFound for unknown users and ErrNotFound for users
// without a referral_info row.
func (r *Repository) GetReferralInfo(ctx context.Context, telegramID string) (*model.ReferralInfo, error) {
	query, args, err := squirrel.
		Select("u.info_ref_id", "ri.real_name", "ri.user_url_for_message").
		From("users u").
		LeftJoin("referral_info ri ON ri.info_id = u.info_ref_id").
		Where(squirrel.Eq{"u.telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row referralInfoRow
	err = r.db.GetContext(ctx, &row, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get referral info: %w", err)
	}

	if row.InfoRefID == nil || !row.RealName.Valid {
		return nil, ErrNotFound
	}

	return &model.ReferralInfo{
		RealName:          row.RealName.String,
		UserURLForMessage: row.UserURLForMessage.String,
	}, nil
}
