package attendance

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/store"
)

// newTestService opens a fresh store in a temp dir and returns a service
// whose clock reads *now, so tests can move time.
func newTestService(t *testing.T, now *time.Time) *Service {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "attendance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewService(NewRepository(st), func() time.Time { return *now })
}

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 3, 2, hour, min, sec, 0, time.Local)
}

func TestStatusAt(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want string
	}{
		{"midnight", at(0, 0, 0), StatusPresent},
		{"just before cutoff", at(6, 59, 59), StatusPresent},
		{"exactly seven", at(7, 0, 0), StatusPresent},
		{"last second of minute zero", at(7, 0, 59), StatusPresent},
		{"first minute past seven", at(7, 1, 0), StatusLate},
		{"late morning", at(8, 0, 0), StatusLate},
		{"end of day", at(23, 59, 59), StatusLate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusAt(tc.t))
		})
	}
}

func TestMarkAttendanceFirstMark(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	rec, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)

	assert.Equal(t, StatusPresent, rec.Status)
	assert.Equal(t, "2026-03-02", rec.Date)
	assert.Equal(t, now.Format(time.RFC3339), rec.Timestamp)
	assert.Equal(t, "A100", rec.PrefectNumber)
	assert.Equal(t, "student", rec.Role)
	assert.NotEmpty(t, rec.ID)
	assert.NotEmpty(t, rec.MemberID)

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "A100", members[0].PrefectNumber)
	assert.Equal(t, "student", members[0].Role)
	assert.Nil(t, members[0].Name)

	records, err := svc.ListAllAttendance(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}

func TestMarkAttendanceDuplicateSameDay(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)

	now = at(9, 0, 0)
	_, err = svc.MarkAttendance(ctx, "A100", "student")
	require.Error(t, err)

	var dup *DuplicateAttendanceError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "A100", dup.PrefectNumber)
	assert.Equal(t, "2026-03-02", dup.Date)
	assert.Contains(t, err.Error(), "A100")
	assert.Contains(t, err.Error(), "2026-03-02")

	records, err := svc.ListAllAttendance(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMarkAttendanceNextDayAllowed(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)

	now = now.AddDate(0, 0, 1).Add(2 * time.Hour)
	rec, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-03", rec.Date)
	assert.Equal(t, StatusLate, rec.Status)

	records, err := svc.ListAllAttendance(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMarkAttendanceRequiresInput(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)

	_, err := svc.MarkAttendance(context.Background(), "", "student")
	assert.Error(t, err)
	_, err = svc.MarkAttendance(context.Background(), "A100", "")
	assert.Error(t, err)
}

func TestResolveOrCreateMember(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	first, err := svc.ResolveOrCreateMember(ctx, "A200", "staff")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.NotEmpty(t, first.MemberID)

	second, err := svc.ResolveOrCreateMember(ctx, "A200", "staff")
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.MemberID, second.MemberID)
}

func TestCreateMemberDuplicatePrefectNumber(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.CreateMember(ctx, "A300", "student", nil)
	require.NoError(t, err)

	_, err = svc.CreateMember(ctx, "A300", "staff", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrefectNumberTaken)
	assert.Contains(t, err.Error(), "A300")

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func strptr(s string) *string { return &s }

func TestUpdateMemberPartialFields(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	id, err := svc.CreateMember(ctx, "A400", "student", strptr("Asha"))
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMember(ctx, id, nil, strptr("staff"), nil))

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "staff", members[0].Role)
	assert.Equal(t, "A400", members[0].PrefectNumber)
	require.NotNil(t, members[0].Name)
	assert.Equal(t, "Asha", *members[0].Name)
}

func TestUpdateMemberNonexistentIDIsNoOp(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.CreateMember(ctx, "A500", "student", nil)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateMember(ctx, "no-such-id", strptr("Z999"), nil, nil))

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "A500", members[0].PrefectNumber)
}

func TestListAttendanceByDate(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)

	now = now.AddDate(0, 0, 1)
	_, err = svc.MarkAttendance(ctx, "A101", "staff")
	require.NoError(t, err)

	records, err := svc.ListAttendanceByDate(ctx, "2026-03-02")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2026-03-02", records[0].Date)
	assert.Equal(t, "A100", records[0].PrefectNumber)
	assert.Equal(t, "student", records[0].Role)

	records, err = svc.ListAttendanceByDate(ctx, "2026-03-04")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteMemberOrphansAttendance(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	rec, err := svc.MarkAttendance(ctx, "A600", "student")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteMember(ctx, rec.MemberID))

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)

	// The orphaned row is invisible to the joined listing.
	records, err := svc.ListAllAttendance(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeleteMemberNonexistentIDIsNoOp(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	assert.NoError(t, svc.DeleteMember(context.Background(), "no-such-id"))
}

func TestWipeAllData(t *testing.T) {
	now := at(6, 30, 0)
	svc := newTestService(t, &now)
	ctx := context.Background()

	_, err := svc.MarkAttendance(ctx, "A100", "student")
	require.NoError(t, err)
	_, err = svc.MarkAttendance(ctx, "A101", "staff")
	require.NoError(t, err)

	require.NoError(t, svc.WipeAllData(ctx))

	records, err := svc.ListAllAttendance(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)

	members, err := svc.ListMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members)
}
