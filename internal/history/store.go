// Package history persists report snapshots so past runs can be compared.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"queueview/internal/domain"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Save persists a report run and returns the stored snapshot.
func (s Store) Save(ctx context.Context, queue string, rows []domain.CorrelatedRow) (domain.ReportSnapshot, error) {
	snap := domain.ReportSnapshot{
		ID:        uuid.NewString(),
		Queue:     queue,
		CreatedAt: s.now().UTC().Format(time.RFC3339),
		Rows:      rows,
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.ReportSnapshot{}, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots(id,queue,created_at) VALUES (?,?,?)`,
		snap.ID, snap.Queue, snap.CreatedAt); err != nil {
		return domain.ReportSnapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	for i, row := range rows {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO snapshot_rows(snapshot_id,position,ticket_id,customer,title,owner_full_name,owner_normalized_name,owner_presence,status,severity)
VALUES (?,?,?,?,?,?,?,?,?,?)`,
			snap.ID, i, row.Ticket.TicketID, row.Ticket.Customer, row.Ticket.Title,
			row.Ticket.OwnerFullName, row.OwnerNormalizedName, string(row.OwnerPresence),
			row.Ticket.Status, row.Ticket.Severity); err != nil {
			return domain.ReportSnapshot{}, fmt.Errorf("insert snapshot row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.ReportSnapshot{}, err
	}
	return snap, nil
}

// List returns the most recent snapshots without their rows, newest first.
func (s Store) List(ctx context.Context, limit int) ([]domain.ReportSnapshot, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id,queue,created_at FROM snapshots ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ReportSnapshot
	for rows.Next() {
		var snap domain.ReportSnapshot
		if err := rows.Scan(&snap.ID, &snap.Queue, &snap.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Get returns one snapshot with its rows in original report order.
func (s Store) Get(ctx context.Context, id string) (domain.ReportSnapshot, error) {
	var snap domain.ReportSnapshot
	err := s.DB.QueryRowContext(ctx, `SELECT id,queue,created_at FROM snapshots WHERE id=?`, id).
		Scan(&snap.ID, &snap.Queue, &snap.CreatedAt)
	if err == sql.ErrNoRows {
		return snap, ErrNotFound
	}
	if err != nil {
		return snap, err
	}

	rows, err := s.DB.QueryContext(ctx, `
SELECT ticket_id,customer,title,owner_full_name,owner_normalized_name,owner_presence,status,severity
FROM snapshot_rows WHERE snapshot_id=? ORDER BY position`, id)
	if err != nil {
		return snap, err
	}
	defer rows.Close()
	for rows.Next() {
		var r domain.CorrelatedRow
		var presence string
		if err := rows.Scan(&r.Ticket.TicketID, &r.Ticket.Customer, &r.Ticket.Title,
			&r.Ticket.OwnerFullName, &r.OwnerNormalizedName, &presence,
			&r.Ticket.Status, &r.Ticket.Severity); err != nil {
			return snap, err
		}
		r.OwnerPresence = domain.PresenceState(presence)
		snap.Rows = append(snap.Rows, r)
	}
	return snap, rows.Err()
}
