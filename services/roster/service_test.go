package roster

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marklist-backend/lib/scrapers/marklist"

	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	selected []string
	failOn   map[string]bool
	reports  map[string]marklist.ReportResult
}

func (f *fakeScraper) Select(ctx context.Context, step marklist.StepName, value string) error {
	f.selected = append(f.selected, value)
	return nil
}

func (f *fakeScraper) FetchReport(ctx context.Context) (marklist.ReportResult, error) {
	current := f.selected[len(f.selected)-1]
	if f.failOn[current] {
		return marklist.ReportResult{}, fmt.Errorf("portal hiccup")
	}
	return f.reports[current], nil
}

func TestRunBatchScrapesEveryCourse(t *testing.T) {
	store := setupStore(t)
	events := make(chan Event, 16)
	service := NewService(Config{PaceSeconds: -1}, store, events)

	scraper := &fakeScraper{
		reports: map[string]marklist.ReportResult{
			"11": {
				CourseCode:   "CHEM202",
				GradeHeaders: []string{"التحريري"},
				Students: []marklist.StudentRecord{
					{ID: 1, Seat: "5001", Name: "احمد علي", Grades: []string{"58"}},
				},
			},
			"12": {
				CourseCode:   "PHYS110",
				GradeHeaders: []string{"التحريري"},
			},
		},
	}
	courses := []marklist.Option{
		{Value: "11", Label: "كيمياء عضوية"},
		{Value: "12", Label: "فيزياء عامة"},
	}

	err := service.RunBatch(context.Background(), scraper, courses)
	require.NoError(t, err)
	require.Equal(t, []string{"11", "12"}, scraper.selected)

	saved, err := store.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 2)

	var ready []string
	close(events)
	for ev := range events {
		if ev.Kind == EventReportReady {
			ready = append(ready, ev.Course)
		}
	}
	require.Equal(t, []string{"CHEM202", "PHYS110"}, ready)
}

func TestRunBatchSkipsFailedCourse(t *testing.T) {
	store := setupStore(t)
	events := make(chan Event, 16)
	service := NewService(Config{PaceSeconds: -1}, store, events)

	scraper := &fakeScraper{
		failOn: map[string]bool{"11": true},
		reports: map[string]marklist.ReportResult{
			"12": {CourseCode: "PHYS110", GradeHeaders: []string{"التحريري"}},
		},
	}
	courses := []marklist.Option{
		{Value: "11", Label: "كيمياء عضوية"},
		{Value: "12", Label: "فيزياء عامة"},
	}

	err := service.RunBatch(context.Background(), scraper, courses)
	require.NoError(t, err)

	saved, err := store.Courses(context.Background())
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "PHYS110", saved[0].Code)

	close(events)
	var sawError bool
	for ev := range events {
		if ev.Kind == EventError {
			sawError = true
			require.Equal(t, "كيمياء عضوية", ev.Course)
		}
	}
	require.True(t, sawError)
}

func TestRunBatchAllFailed(t *testing.T) {
	store := setupStore(t)
	service := NewService(Config{PaceSeconds: -1}, store, nil)

	scraper := &fakeScraper{failOn: map[string]bool{"11": true}}
	courses := []marklist.Option{{Value: "11", Label: "كيمياء عضوية"}}

	err := service.RunBatch(context.Background(), scraper, courses)
	require.Error(t, err)
}

type fakeAdvancer struct {
	step *marklist.Step
	opts []marklist.Option
	err  error
}

func (f fakeAdvancer) Advance(ctx context.Context) (*marklist.Step, []marklist.Option, error) {
	return f.step, f.opts, f.err
}

func TestAdvanceAnnouncesLoadedStep(t *testing.T) {
	events := make(chan Event, 4)
	service := NewService(Config{}, Store{}, events)

	year := marklist.Steps[0]
	opts := []marklist.Option{{Value: "5", Label: "2023"}, {Value: "6", Label: "2022"}}

	step, got, err := service.Advance(context.Background(), fakeAdvancer{step: &year, opts: opts})
	require.NoError(t, err)
	require.Equal(t, marklist.StepYear, step.Name)
	require.Equal(t, opts, got)

	ev := <-events
	require.Equal(t, EventStepLoaded, ev.Kind)
	require.Equal(t, marklist.StepYear, ev.Step)
	require.Equal(t, opts, ev.Options)
}

func TestAdvanceFinishedCascadeStaysQuiet(t *testing.T) {
	events := make(chan Event, 4)
	service := NewService(Config{}, Store{}, events)

	step, opts, err := service.Advance(context.Background(), fakeAdvancer{})
	require.NoError(t, err)
	require.Nil(t, step)
	require.Nil(t, opts)
	require.Empty(t, events)
}

func TestAdvanceErrorReported(t *testing.T) {
	events := make(chan Event, 4)
	service := NewService(Config{}, Store{}, events)

	_, _, err := service.Advance(context.Background(), fakeAdvancer{err: fmt.Errorf("portal hiccup")})
	require.Error(t, err)

	ev := <-events
	require.Equal(t, EventError, ev.Kind)
	require.Error(t, ev.Err)
}

func TestPaceDefaultsToNonZeroDelay(t *testing.T) {
	service := NewService(Config{}, Store{}, nil)
	require.GreaterOrEqual(t, service.paceDelay(), time.Duration(defaultPaceSeconds)*time.Second)
}

func TestPaceConfiguredDelay(t *testing.T) {
	service := NewService(Config{PaceSeconds: 5}, Store{}, nil)
	require.GreaterOrEqual(t, service.paceDelay(), 5*time.Second)
}

func TestPaceExplicitlyDisabled(t *testing.T) {
	service := NewService(Config{PaceSeconds: -1}, Store{}, nil)
	require.Equal(t, time.Duration(0), service.paceDelay())
}

func TestRunBatchHonorsCancellation(t *testing.T) {
	store := setupStore(t)
	service := NewService(Config{PaceSeconds: -1}, store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scraper := &fakeScraper{}
	courses := []marklist.Option{{Value: "11", Label: "كيمياء عضوية"}}

	err := service.RunBatch(ctx, scraper, courses)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, scraper.selected)
}
