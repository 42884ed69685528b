// Package history keeps a log of monitoring cycles and the events each
// cycle saw.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"coursewatch/internal/components/assert"
	"coursewatch/internal/components/chrono"
	dbconfig "coursewatch/internal/components/db"
	"coursewatch/internal/history/db"
)

type Event struct {
	Name      string `json:"name"`
	Location  string `json:"location"`
	EventDate string `json:"event_date"`
	Status    string `json:"status"`
	Notified  bool   `json:"notified"`
}

type Check struct {
	ID        string    `json:"id"`
	CheckedAt time.Time `json:"checked_at"`
	Ok        bool      `json:"ok"`
	Message   string    `json:"message"`
	Events    []Event   `json:"events"`
}

func (c Check) NotifiedCount() int {
	n := 0
	for _, e := range c.Events {
		if e.Notified {
			n++
		}
	}
	return n
}

type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	assert.NotNil(database)
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

// Open opens the database described by cfg and applies the schema.
func Open(cfg dbconfig.Config) (Store, error) {
	database, err := cfg.Open(db.Schema)
	if err != nil {
		return Store{}, fmt.Errorf("open history: %w", err)
	}
	return NewStore(database), nil
}

func (s Store) Close() error {
	return s.db.Close()
}

func (s Store) Record(ctx context.Context, check Check) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.CreateCheck(ctx, db.CreateCheckParams{
		ID:        check.ID,
		CheckedAt: check.CheckedAt.Unix(),
		Ok:        check.Ok,
		Message:   check.Message,
		Notified:  int64(check.NotifiedCount()),
	})
	if err != nil {
		return fmt.Errorf("create check %s: %w", check.ID, err)
	}
	for i, e := range check.Events {
		err = txqry.CreateCheckEvent(ctx, db.CreateCheckEventParams{
			CheckID:   check.ID,
			Position:  int64(i),
			Name:      e.Name,
			Location:  e.Location,
			EventDate: e.EventDate,
			Status:    e.Status,
			Notified:  e.Notified,
		})
		if err != nil {
			return fmt.Errorf("create check event %s: %w", e.Name, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit checks, newest first.
func (s Store) Recent(ctx context.Context, limit int) ([]Check, error) {
	rows, err := s.qry.GetRecentChecks(ctx, int64(limit))
	if err != nil {
		return nil, err
	}
	out := make([]Check, len(rows))
	for i, row := range rows {
		events, err := s.qry.GetCheckEvents(ctx, row.ID)
		if err != nil {
			return nil, err
		}
		out[i] = Check{
			ID:        row.ID,
			CheckedAt: time.Unix(row.CheckedAt, 0).In(chrono.Taipei()),
			Ok:        row.Ok,
			Message:   row.Message,
			Events:    make([]Event, len(events)),
		}
		for j, e := range events {
			out[i].Events[j] = Event{
				Name:      e.Name,
				Location:  e.Location,
				EventDate: e.EventDate,
				Status:    e.Status,
				Notified:  e.Notified,
			}
		}
	}
	return out, nil
}

// Prune deletes checks older than before along with their events.
func (s Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	err = txqry.DeleteCheckEventsBefore(ctx, before.Unix())
	if err != nil {
		return 0, err
	}
	deleted, err := txqry.DeleteChecksBefore(ctx, before.Unix())
	if err != nil {
		return 0, err
	}
	return deleted, tx.Commit()
}
