package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Attendance statuses derived at marking time.
const (
	StatusPresent = "Present"
	StatusLate    = "Late"
)

const dateLayout = "2006-01-02"

// ErrPrefectNumberTaken is returned by CreateMember when the prefect number
// already belongs to another member.
var ErrPrefectNumberTaken = errors.New("prefect number already taken")

// DuplicateAttendanceError signals that the member already has a record for
// the given date. No row is written.
type DuplicateAttendanceError struct {
	PrefectNumber string
	Date          string
}

func (e *DuplicateAttendanceError) Error() string {
	return fmt.Sprintf("attendance already marked for %s on %s", e.PrefectNumber, e.Date)
}

// Resolution is the outcome of resolving a prefect number to a member:
// Created reports whether the lookup had to insert a new member.
type Resolution struct {
	MemberID string
	Created  bool
}

// Service implements the attendance operations on top of the repository.
// All date/time values use local wall-clock time.
type Service struct {
	repo *Repository
	now  func() time.Time
}

// NewService creates a service backed by a repository. now defaults to
// time.Now and exists so the cutoff logic is testable.
func NewService(repo *Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{repo: repo, now: now}
}

// statusAt classifies a marking instant: late strictly after 07:00, where
// minute 0 of hour 7 still counts as present.
func statusAt(t time.Time) string {
	if t.Hour() > 7 || (t.Hour() == 7 && t.Minute() > 0) {
		return StatusLate
	}
	return StatusPresent
}

// ResolveOrCreateMember looks a member up by prefect number, inserting one
// with the given role (and no name) on first sighting. When a concurrent
// first sighting wins the insert race, the unique constraint trips and the
// member is re-read, so both callers converge on the same id.
func (s *Service) ResolveOrCreateMember(ctx context.Context, prefectNumber, role string) (Resolution, error) {
	if prefectNumber == "" || role == "" {
		return Resolution{}, errors.New("prefect number and role required")
	}

	m, err := s.repo.FindMemberByPrefectNumber(ctx, prefectNumber)
	if err != nil {
		return Resolution{}, fmt.Errorf("look up member %s: %w", prefectNumber, err)
	}
	if m != nil {
		return Resolution{MemberID: m.ID}, nil
	}

	member := Member{ID: uuid.NewString(), Role: role, PrefectNumber: prefectNumber}
	if err := s.repo.InsertMember(ctx, member); err != nil {
		if isUniqueViolation(err) {
			m, rerr := s.repo.FindMemberByPrefectNumber(ctx, prefectNumber)
			if rerr != nil {
				return Resolution{}, fmt.Errorf("re-read member %s: %w", prefectNumber, rerr)
			}
			if m != nil {
				return Resolution{MemberID: m.ID}, nil
			}
		}
		return Resolution{}, fmt.Errorf("create member %s: %w", prefectNumber, err)
	}
	return Resolution{MemberID: member.ID, Created: true}, nil
}

// MarkAttendance records one attendance event for today. The member is
// resolved (or created) from the prefect number; a second mark for the same
// member on the same calendar date fails with DuplicateAttendanceError. The
// unique index on (member_id, date) backstops the pre-check, so a racing
// concurrent mark surfaces as the same duplicate error rather than a second
// row.
func (s *Service) MarkAttendance(ctx context.Context, prefectNumber, role string) (Record, error) {
	res, err := s.ResolveOrCreateMember(ctx, prefectNumber, role)
	if err != nil {
		return Record{}, err
	}

	now := s.now()
	date := now.Format(dateLayout)

	marked, err := s.repo.HasAttendance(ctx, res.MemberID, date)
	if err != nil {
		return Record{}, fmt.Errorf("check attendance for %s: %w", prefectNumber, err)
	}
	if marked {
		return Record{}, &DuplicateAttendanceError{PrefectNumber: prefectNumber, Date: date}
	}

	rec := Record{
		ID:            uuid.NewString(),
		MemberID:      res.MemberID,
		Date:          date,
		Timestamp:     now.Format(time.RFC3339),
		Status:        statusAt(now),
		PrefectNumber: prefectNumber,
		Role:          role,
	}
	if err := s.repo.InsertRecord(ctx, rec); err != nil {
		if isUniqueViolation(err) {
			return Record{}, &DuplicateAttendanceError{PrefectNumber: prefectNumber, Date: date}
		}
		return Record{}, fmt.Errorf("insert attendance for %s: %w", prefectNumber, err)
	}
	return rec, nil
}

// ListAttendanceByDate returns all records for the given calendar date.
func (s *Service) ListAttendanceByDate(ctx context.Context, date string) ([]Record, error) {
	return s.repo.ListByDate(ctx, date)
}

// ListAllAttendance returns the full attendance history.
func (s *Service) ListAllAttendance(ctx context.Context) ([]Record, error) {
	return s.repo.ListAll(ctx)
}

// ListMembers returns all members.
func (s *Service) ListMembers(ctx context.Context) ([]Member, error) {
	return s.repo.ListMembers(ctx)
}

// CreateMember inserts a member directly. A taken prefect number is surfaced
// as ErrPrefectNumberTaken; nothing is written in that case.
func (s *Service) CreateMember(ctx context.Context, prefectNumber, role string, name *string) (string, error) {
	if prefectNumber == "" || role == "" {
		return "", errors.New("prefect number and role required")
	}
	member := Member{ID: uuid.NewString(), Name: name, Role: role, PrefectNumber: prefectNumber}
	if err := s.repo.InsertMember(ctx, member); err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("%w: %s", ErrPrefectNumberTaken, prefectNumber)
		}
		return "", fmt.Errorf("create member %s: %w", prefectNumber, err)
	}
	return member.ID, nil
}

// UpdateMember updates each provided field independently, leaving omitted
// fields untouched. Updating a nonexistent id is a silent no-op.
func (s *Service) UpdateMember(ctx context.Context, id string, prefectNumber, role, name *string) error {
	if err := s.repo.UpdateMember(ctx, id, prefectNumber, role, name); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrPrefectNumberTaken, *prefectNumber)
		}
		return fmt.Errorf("update member %s: %w", id, err)
	}
	return nil
}

// DeleteMember removes the member row, orphaning any attendance rows.
// Deleting a nonexistent id is a silent no-op.
func (s *Service) DeleteMember(ctx context.Context, id string) error {
	return s.repo.DeleteMember(ctx, id)
}

// WipeAllData deletes all attendance records, then all members.
func (s *Service) WipeAllData(ctx context.Context) error {
	return s.repo.WipeAll(ctx)
}
