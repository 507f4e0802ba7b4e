package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"UD_referral_bot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type User struct {
	TelegramID             string         `db:"telegram_id"`
	Username               sql.NullString `db:"username"`
	Name                   sql.NullString `db:"name"`
	RegistrationDate       time.Time      `db:"date_of_reg"`
	UserURL                sql.NullString `db:"user_url"`
	IsReferral             bool           `db:"is_referral"`
	ReferralMessageChanged bool           `db:"referral_message_changed"`
	ReferralURL            string         `db:"referral_url"`
	InfoRefID              *int64         `db:"info_ref_id"`
}

var userColumns = []string{
	"telegram_id",
	"username",
	"name",
	"date_of_reg",
	"user_url",
	"is_referral",
	"referral_message_changed",
	"referral_url",
	"info_ref_id",
}

func (u User) toModel() *model.User {
	return &model.User{
		TelegramID:             u.TelegramID,
		Username:               u.Username.String,
		Name:                   u.Name.String,
		RegistrationDate:       u.RegistrationDate,
		UserURL:                u.UserURL.String,
		IsReferral:             u.IsReferral,
		ReferralMessageChanged: u.ReferralMessageChanged,
		ReferralURL:            u.ReferralURL,
		InfoRefID:              u.InfoRefID,
	}
}

// CreateUser stores a new user together with the invitation edge from referrerID.
// An already registered user is left untouched.
func (r *Repository) CreateUser(ctx context.Context, user *model.User, referrerID *string) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		exists, err := userExistsWithTx(ctx, tx, user.TelegramID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"telegram_id":              user.TelegramID,
				"username":                 nullString(user.Username),
				"name":                     nullString(user.Name),
				"date_of_reg":              user.RegistrationDate,
				"user_url":                 nullString(user.UserURL),
				"is_referral":              user.IsReferral,
				"referral_message_changed": user.ReferralMessageChanged,
				"referral_url":             user.ReferralURL,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}

		if referrerID == nil || *referrerID == "" {
			return nil
		}

		invQuery, invArgs, err := squirrel.
			Insert("invitations").
			Columns("referrer", "referral").
			Values(*referrerID, user.TelegramID).
			Suffix("ON CONFLICT (referral) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build invitation insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, invQuery, invArgs...)
		if err != nil {
			return fmt.Errorf("failed to insert invitation: %w", err)
		}

		return nil
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *Repository) UserExists(ctx context.Context, telegramID string) (bool, error) {
	if telegramID == "" {
		return false, nil
	}
	return userExistsWithTx(ctx, r.db, telegramID)
}

func userExistsWithTx(ctx context.Context, q sqlx.QueryerContext, telegramID string) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		Prefix("SELECT EXISTS (").
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		Suffix(")").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err := sqlx.GetContext(ctx, q, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID string) (*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

// GetReferrerID returns the id of whoever invited telegramID, or nil when nobody did.
func (r *Repository) GetReferrerID(ctx context.Context, telegramID string) (*string, error) {
	query, args, err := squirrel.
		Select("referrer").
		From("invitations").
		Where(squirrel.Eq{"referral": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var referrer string
	err = r.db.GetContext(ctx, &referrer, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get referrer: %w", err)
	}

	return &referrer, nil
}

func (r *Repository) GetUserURLs(ctx context.Context, telegramIDs []string) ([]string, error) {
	if len(telegramIDs) == 0 {
		return []string{}, nil
	}

	query, args, err := squirrel.
		Select("user_url").
		From("users").
		Where("telegram_id = ANY(?)", pq.Array(telegramIDs)).
		Where(squirrel.NotEq{"user_url": nil}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	urls := []string{}
	err = r.db.SelectContext(ctx, &urls, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get user urls: %w", err)
	}

	return urls, nil
}

func (r *Repository) SetReferralMessageChanged(ctx context.Context, telegramID string, changed bool) error {
	query, args, err := squirrel.
		Update("users").
		Set("referral_message_changed", changed).
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update referral_message_changed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// GetUsersRegisteredBetween returns users registered strictly after from and strictly before to.
func (r *Repository) GetUsersRegisteredBetween(ctx context.Context, from, to time.Time) ([]model.Registration, error) {
	query, args, err := squirrel.
		Select("telegram_id", "date_of_reg").
		From("users").
		Where(squirrel.Gt{"date_of_reg": from}).
		Where(squirrel.Lt{"date_of_reg": to}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []struct {
		TelegramID       string    `db:"telegram_id"`
		RegistrationDate time.Time `db:"date_of_reg"`
	}
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}

	out := make([]model.Registration, len(rows))
	for i, row := range rows {
		out[i] = model.Registration{
			TelegramID:       row.TelegramID,
			RegistrationDate: row.RegistrationDate,
		}
	}

	return out, nil
}
