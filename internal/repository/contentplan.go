package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"UD_referral_bot/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type ContentPlanEntry struct {
	OwnerID     string         `db:"telegram_id"`
	Message     string         `db:"message"`
	MediaPath   sql.NullString `db:"media_path"`
	PublishDate time.Time      `db:"publish_date"`
}

func (e ContentPlanEntry) toModel() model.ContentPlanEntry {
	entry := model.ContentPlanEntry{
		OwnerID:     e.OwnerID,
		Message:     e.Message,
		PublishDate: e.PublishDate,
	}
	if e.MediaPath.Valid {
		path := e.MediaPath.String
		entry.MediaPath = &path
	}
	return entry
}

// CreateContentPlanEntry stores entry. It returns ErrUserNotFound when the owner is
// unknown and ErrAlreadyExists when the owner already has an entry for that date.
func (r *Repository) CreateContentPlanEntry(ctx context.Context, entry *model.ContentPlanEntry) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		exists, err := userExistsWithTx(ctx, tx, entry.OwnerID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}

		existsQuery, existsArgs, err := squirrel.
			Select("1").
			Prefix("SELECT EXISTS (").
			From("content_plan").
			Where(squirrel.Eq{
				"telegram_id":  entry.OwnerID,
				"publish_date": formatDate(entry.PublishDate),
			}).
			Suffix(")").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build content plan exists query: %w", err)
		}

		var taken bool
		if err := tx.GetContext(ctx, &taken, existsQuery, existsArgs...); err != nil {
			return fmt.Errorf("failed to check content plan entry: %w", err)
		}
		if taken {
			return ErrAlreadyExists
		}

		query, args, err := squirrel.
			Insert("content_plan").
			SetMap(map[string]interface{}{
				"telegram_id":  entry.OwnerID,
				"message":      entry.Message,
				"media_path":   entry.MediaPath,
				"publish_date": formatDate(entry.PublishDate),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build content plan insert query: %w", err)
		}

		_, err = tx.ExecContext(ctx, query, args...)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert content plan entry: %w", err)
		}

		return nil
	})
}

func (r *Repository) DeleteContentPlanEntry(ctx context.Context, ownerID string, publishDate time.Time) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Delete("content_plan").
			Where(squirrel.Eq{
				"telegram_id":  ownerID,
				"publish_date": formatDate(publishDate),
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete content plan entry: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotFound
		}

		return nil
	})
}

func (r *Repository) GetContentPlanEntries(ctx context.Context, ownerID string) ([]model.ContentPlanEntry, error) {
	return r.selectContentPlan(ctx, squirrel.Eq{"telegram_id": ownerID})
}

func (r *Repository) GetContentPlanByDate(ctx context.Context, publishDate time.Time) ([]model.ContentPlanEntry, error) {
	return r.selectContentPlan(ctx, squirrel.Eq{"publish_date": formatDate(publishDate)})
}

func (r *Repository) selectContentPlan(ctx context.Context, where squirrel.Sqlizer) ([]model.ContentPlanEntry, error) {
	query, args, err := squirrel.
		Select("telegram_id", "message", "media_path", "publish_date").
		From("content_plan").
		Where(where).
		OrderBy("publish_date", "telegram_id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var rows []ContentPlanEntry
	err = r.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get content plan: %w", err)
	}

	entries := make([]model.ContentPlanEntry, len(rows))
	for i, row := range rows {
		entries[i] = row.toModel()
	}

	return entries, nil
}

// DeleteContentPlanBefore removes every entry published strictly before day and
// returns the media paths the removed entries carried.
func (r *Repository) DeleteContentPlanBefore(ctx context.Context, day time.Time) ([]string, error) {
	paths := []string{}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Delete("content_plan").
			Where(squirrel.Lt{"publish_date": formatDate(day)}).
			Suffix("RETURNING media_path").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build content plan delete query: %w", err)
		}

		var removed []sql.NullString
		if err := tx.SelectContext(ctx, &removed, query, args...); err != nil {
			return fmt.Errorf("failed to delete expired content plan: %w", err)
		}

		for _, path := range removed {
			if path.Valid && path.String != "" {
				paths = append(paths, path.String)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return paths, nil
}
