package roster

import (
	"context"
	"testing"

	"marklist-backend/lib/scrapers/marklist"
	"marklist-backend/lib/testutil"
	"marklist-backend/services/roster/db"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) Store {
	res, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "roster",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)
	return NewStore(res.DB)
}

func TestSaveAndLoadRoster(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	report := marklist.ReportResult{
		CourseCode:   "CHEM202",
		GradeHeaders: []string{"التحريري", "أعمال السنة"},
		Students: []marklist.StudentRecord{
			{ID: 1, Seat: "5001", Name: "احمد علي", Grades: []string{"58", "30"}},
			{ID: 2, Seat: "5002", Name: "سارة محمود", Grades: []string{"61", "28"}},
		},
	}
	require.NoError(t, store.SaveReport(ctx, report))

	got, err := store.Roster(ctx, "CHEM202")
	require.NoError(t, err)
	if diff := cmp.Diff(report, got); diff != "" {
		t.Fatalf("roster mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveReportReplacesExisting(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	first := marklist.ReportResult{
		CourseCode:   "MATH101",
		GradeHeaders: []string{"التحريري"},
		Students: []marklist.StudentRecord{
			{ID: 1, Seat: "1", Name: "طالب قديم", Grades: []string{"40"}},
			{ID: 2, Seat: "2", Name: "طالب آخر", Grades: []string{"50"}},
		},
	}
	require.NoError(t, store.SaveReport(ctx, first))

	second := marklist.ReportResult{
		CourseCode:   "MATH101",
		GradeHeaders: []string{"التحريري"},
		Students: []marklist.StudentRecord{
			{ID: 1, Seat: "1", Name: "طالب جديد", Grades: []string{"45"}},
		},
	}
	require.NoError(t, store.SaveReport(ctx, second))

	got, err := store.Roster(ctx, "MATH101")
	require.NoError(t, err)
	require.Len(t, got.Students, 1)
	require.Equal(t, "طالب جديد", got.Students[0].Name)

	courses, err := store.Courses(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	require.Equal(t, "MATH101", courses[0].Code)
	require.Equal(t, 1, courses[0].Students)
}

func TestCoursesListsEveryCourse(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	for _, code := range []string{"PHYS110", "CHEM202", "MATH101"} {
		err := store.SaveReport(ctx, marklist.ReportResult{
			CourseCode:   code,
			GradeHeaders: []string{"التحريري"},
		})
		require.NoError(t, err)
	}

	courses, err := store.Courses(ctx)
	require.NoError(t, err)
	var codes []string
	for _, c := range courses {
		codes = append(codes, c.Code)
	}
	require.Equal(t, []string{"CHEM202", "MATH101", "PHYS110"}, codes)
}
