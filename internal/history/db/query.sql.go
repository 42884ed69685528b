package db

import (
	"context"
)

const createCheck = `-- name: CreateCheck :exec
INSERT INTO checks (id, checked_at, ok, message, notified)
VALUES (?, ?, ?, ?, ?)
`

type CreateCheckParams struct {
	ID        string
	CheckedAt int64
	Ok        bool
	Message   string
	Notified  int64
}

func (q *Queries) CreateCheck(ctx context.Context, arg CreateCheckParams) error {
	_, err := q.db.ExecContext(ctx, createCheck,
		arg.ID,
		arg.CheckedAt,
		arg.Ok,
		arg.Message,
		arg.Notified,
	)
	return err
}

const createCheckEvent = `-- name: CreateCheckEvent :exec
INSERT INTO check_events (check_id, position, name, location, event_date, status, notified)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type CreateCheckEventParams struct {
	CheckID   string
	Position  int64
	Name      string
	Location  string
	EventDate string
	Status    string
	Notified  bool
}

func (q *Queries) CreateCheckEvent(ctx context.Context, arg CreateCheckEventParams) error {
	_, err := q.db.ExecContext(ctx, createCheckEvent,
		arg.CheckID,
		arg.Position,
		arg.Name,
		arg.Location,
		arg.EventDate,
		arg.Status,
		arg.Notified,
	)
	return err
}

const getRecentChecks = `-- name: GetRecentChecks :many
SELECT id, checked_at, ok, message, notified FROM checks
ORDER BY checked_at DESC
LIMIT ?
`

func (q *Queries) GetRecentChecks(ctx context.Context, limit int64) ([]Check, error) {
	rows, err := q.db.QueryContext(ctx, getRecentChecks, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Check
	for rows.Next() {
		var i Check
		if err := rows.Scan(
			&i.ID,
			&i.CheckedAt,
			&i.Ok,
			&i.Message,
			&i.Notified,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCheckEvents = `-- name: GetCheckEvents :many
SELECT check_id, position, name, location, event_date, status, notified FROM check_events
WHERE check_id = ?
ORDER BY position
`

func (q *Queries) GetCheckEvents(ctx context.Context, checkID string) ([]CheckEvent, error) {
	rows, err := q.db.QueryContext(ctx, getCheckEvents, checkID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CheckEvent
	for rows.Next() {
		var i CheckEvent
		if err := rows.Scan(
			&i.CheckID,
			&i.Position,
			&i.Name,
			&i.Location,
			&i.EventDate,
			&i.Status,
			&i.Notified,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteCheckEventsBefore = `-- name: DeleteCheckEventsBefore :exec
DELETE FROM check_events
WHERE check_id IN (SELECT id FROM checks WHERE checked_at < ?)
`

func (q *Queries) DeleteCheckEventsBefore(ctx context.Context, checkedAt int64) error {
	_, err := q.db.ExecContext(ctx, deleteCheckEventsBefore, checkedAt)
	return err
}

const deleteChecksBefore = `-- name: DeleteChecksBefore :execrows
DELETE FROM checks WHERE checked_at < ?
`

func (q *Queries) DeleteChecksBefore(ctx context.Context, checkedAt int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteChecksBefore, checkedAt)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
