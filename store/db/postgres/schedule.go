package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/voicecal/store"
)

const scheduleColumns = `id, uid, creator_id, created_ts, updated_ts,
			title, description, category,
			start_ts, end_ts, all_day, timezone,
			priority, type, color, completed`

func (d *DB) CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error) {
	fields := []string{
		"uid", "creator_id", "title", "description", "category",
		"start_ts", "end_ts", "all_day", "timezone",
		"priority", "type", "color", "completed",
	}
	placeholderValues := []any{
		create.UID, create.CreatorID, create.Title, create.Description, create.Category,
		create.StartTs, create.EndTs, create.AllDay, create.Timezone,
		create.Priority, create.Type, create.Color, create.Completed,
	}

	// Add optional timestamps
	if create.CreatedTs != 0 {
		fields = append(fields, "created_ts")
		placeholderValues = append(placeholderValues, create.CreatedTs)
	}
	if create.UpdatedTs != 0 {
		fields = append(fields, "updated_ts")
		placeholderValues = append(placeholderValues, create.UpdatedTs)
	}

	stmt := `INSERT INTO schedule (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(placeholderValues)) + `)
		RETURNING id, created_ts, updated_ts`

	if err := d.db.QueryRowContext(ctx, stmt, placeholderValues...).Scan(
		&create.ID,
		&create.CreatedTs,
		&create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create schedule")
	}

	return create, nil
}

func (d *DB) ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.ID; v != nil {
		where, args = append(where, "schedule.id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.UID; v != nil {
		where, args = append(where, "schedule.uid = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.CreatorID; v != nil {
		where, args = append(where, "schedule.creator_id = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsFrom; v != nil {
		where, args = append(where, "schedule.start_ts >= "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := find.StartTsTo; v != nil {
		where, args = append(where, "schedule.start_ts <= "+placeholder(len(args)+1)), append(args, *v)
	}

	// Ordering by start_ts, id keeps ties in insertion order.
	query := `
		SELECT
			` + scheduleColumns + `
		FROM schedule
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY schedule.start_ts ASC, schedule.id ASC`

	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
		if find.Offset != nil {
			query = fmt.Sprintf("%s OFFSET %d", query, *find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query schedules")
	}
	defer rows.Close()

	list := make([]*store.Schedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate schedules")
	}

	return list, nil
}

func (d *DB) UpdateSchedule(ctx context.Context, update *store.UpdateSchedule) (*store.Schedule, error) {
	set, args := []string{}, []any{}

	if v := update.UpdatedTs; v != nil {
		set, args = append(set, "updated_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Title; v != nil {
		set, args = append(set, "title = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Description; v != nil {
		set, args = append(set, "description = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Category; v != nil {
		set, args = append(set, "category = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.StartTs; v != nil {
		set, args = append(set, "start_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.EndTs; v != nil {
		set, args = append(set, "end_ts = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.AllDay; v != nil {
		set, args = append(set, "all_day = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Timezone; v != nil {
		set, args = append(set, "timezone = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Priority; v != nil {
		set, args = append(set, "priority = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Type; v != nil {
		set, args = append(set, "type = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Color; v != nil {
		set, args = append(set, "color = "+placeholder(len(args)+1)), append(args, *v)
	}
	if v := update.Completed; v != nil {
		set, args = append(set, "completed = "+placeholder(len(args)+1)), append(args, *v)
	}

	if len(set) == 0 {
		return nil, errors.New("no fields to update")
	}

	args = append(args, update.ID)
	stmt := `UPDATE schedule SET ` + strings.Join(set, ", ") + ` WHERE id = ` + placeholder(len(args)) + ` RETURNING ` + scheduleColumns
	schedule, err := scanSchedule(d.db.QueryRowContext(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrScheduleNotFound
		}
		return nil, err
	}
	return schedule, nil
}

func (d *DB) DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error {
	stmt := `DELETE FROM schedule WHERE id = ` + placeholder(1)
	result, err := d.db.ExecContext(ctx, stmt, delete.ID)
	if err != nil {
		return errors.Wrap(err, "failed to delete schedule")
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return store.ErrScheduleNotFound
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (*store.Schedule, error) {
	var schedule store.Schedule
	if err := row.Scan(
		&schedule.ID,
		&schedule.UID,
		&schedule.CreatorID,
		&schedule.CreatedTs,
		&schedule.UpdatedTs,
		&schedule.Title,
		&schedule.Description,
		&schedule.Category,
		&schedule.StartTs,
		&schedule.EndTs,
		&schedule.AllDay,
		&schedule.Timezone,
		&schedule.Priority,
		&schedule.Type,
		&schedule.Color,
		&schedule.Completed,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan schedule")
	}
	return &schedule, nil
}
