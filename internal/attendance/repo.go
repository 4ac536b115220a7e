package attendance

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rollcall/internal/store"
)

// Member is a tracked individual, identified externally by a prefect number.
type Member struct {
	ID            string  `json:"id"`
	Name          *string `json:"name,omitempty"`
	Role          string  `json:"role"`
	PrefectNumber string  `json:"prefect_number"`
}

// Record is one per-day attendance event for a member. Date is the grouping
// key (local calendar date), Timestamp the precise marking instant. The
// joined fields carry the owning member's prefect number and role for
// display.
type Record struct {
	ID            string `json:"id"`
	MemberID      string `json:"member_id"`
	Date          string `json:"date"`
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
	PrefectNumber string `json:"prefect_number,omitempty"`
	Role          string `json:"role,omitempty"`
}

// Repository persists members and attendance records in the SQLite store.
type Repository struct {
	store *store.Store
}

// NewRepository creates a repo.
func NewRepository(st *store.Store) *Repository {
	return &Repository{store: st}
}

// isUniqueViolation reports whether err is a SQLite unique-constraint
// failure (duplicate prefect number, or the member+date attendance index).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// FindMemberByPrefectNumber returns the member with the given prefect number
// or nil when none exists.
func (r *Repository) FindMemberByPrefectNumber(ctx context.Context, prefectNumber string) (*Member, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT id, name, role, prefect_number FROM members WHERE prefect_number = ?
	`, prefectNumber)
	var m Member
	if err := row.Scan(&m.ID, &m.Name, &m.Role, &m.PrefectNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// InsertMember writes a new member row.
func (r *Repository) InsertMember(ctx context.Context, m Member) error {
	_, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO members (id, name, role, prefect_number)
		VALUES (?, ?, ?, ?)
	`, m.ID, m.Name, m.Role, m.PrefectNumber)
	return err
}

// HasAttendance reports whether the member already has a record for the date.
func (r *Repository) HasAttendance(ctx context.Context, memberID, date string) (bool, error) {
	row := r.store.DB().QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM attendance WHERE member_id = ? AND date = ?)
	`, memberID, date)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// InsertRecord writes a new attendance record.
func (r *Repository) InsertRecord(ctx context.Context, rec Record) error {
	_, err := r.store.DB().ExecContext(ctx, `
		INSERT INTO attendance (id, member_id, date, timestamp, status)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.MemberID, rec.Date, rec.Timestamp, rec.Status)
	return err
}

const recordColumns = `a.id, a.member_id, a.date, a.timestamp, a.status, m.prefect_number, m.role`

// ListByDate returns all records for the given calendar date, joined with the
// owning member. Exact string match, store-native order.
func (r *Repository) ListByDate(ctx context.Context, date string) ([]Record, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		JOIN members m ON a.member_id = m.id
		WHERE a.date = ?
	`, date)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

// ListAll returns the full attendance history joined with members.
func (r *Repository) ListAll(ctx context.Context) ([]Record, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance a
		JOIN members m ON a.member_id = m.id
	`)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()
	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.Date, &rec.Timestamp, &rec.Status, &rec.PrefectNumber, &rec.Role); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListMembers returns all member rows.
func (r *Repository) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := r.store.DB().QueryContext(ctx, `
		SELECT id, name, role, prefect_number FROM members
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.Name, &m.Role, &m.PrefectNumber); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// UpdateMember applies one independent UPDATE per provided field. A
// nonexistent id affects zero rows and is not an error.
func (r *Repository) UpdateMember(ctx context.Context, id string, prefectNumber, role, name *string) error {
	db := r.store.DB()
	if prefectNumber != nil {
		if _, err := db.ExecContext(ctx, `UPDATE members SET prefect_number = ? WHERE id = ?`, *prefectNumber, id); err != nil {
			return err
		}
	}
	if role != nil {
		if _, err := db.ExecContext(ctx, `UPDATE members SET role = ? WHERE id = ?`, *role, id); err != nil {
			return err
		}
	}
	if name != nil {
		if _, err := db.ExecContext(ctx, `UPDATE members SET name = ? WHERE id = ?`, *name, id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteMember removes the member row. Attendance rows referencing the id are
// left orphaned; the schema does not cascade.
func (r *Repository) DeleteMember(ctx context.Context, id string) error {
	_, err := r.store.DB().ExecContext(ctx, `DELETE FROM members WHERE id = ?`, id)
	return err
}

// WipeAll deletes all attendance records, then all members, as two
// independent statements.
func (r *Repository) WipeAll(ctx context.Context) error {
	db := r.store.DB()
	if _, err := db.ExecContext(ctx, `DELETE FROM attendance`); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM members`)
	return err
}
