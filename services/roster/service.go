package roster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"marklist-backend/lib/restyutil"
	"marklist-backend/lib/scrapers/marklist"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/roster")

type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Config struct {
	BaseURL            string `json:"base_url"`
	InsecureSkipVerify bool   `json:"insecure_skip_verify"`
	Debug              bool   `json:"debug"`
	// Seconds to idle between courses in a batch. A small random
	// jitter is added on top so requests do not land on a fixed beat.
	// Zero takes the default; a negative value disables pacing.
	PaceSeconds int                `json:"pace_seconds"`
	Profiles    map[string]Profile `json:"profiles"`
}

// CourseScraper is the slice of the cascade a batch run needs. The
// concrete implementation is *marklist.Cascade.
type CourseScraper interface {
	Select(ctx context.Context, step marklist.StepName, value string) error
	FetchReport(ctx context.Context) (marklist.ReportResult, error)
}

// StepAdvancer is the slice of the cascade the front-ends drive
// between selections.
type StepAdvancer interface {
	Advance(ctx context.Context) (*marklist.Step, []marklist.Option, error)
}

type Service struct {
	config Config
	store  Store
	events chan<- Event
}

func NewService(config Config, store Store, events chan<- Event) Service {
	return Service{
		config: config,
		store:  store,
		events: events,
	}
}

// LoginProfile opens a fresh portal session for a named profile from
// the config.
func (s Service) LoginProfile(ctx context.Context, name string) (*marklist.Cascade, error) {
	profile, ok := s.config.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("no such profile: %s", name)
	}

	opts := marklist.SessionOptions{
		BaseURL:            s.config.BaseURL,
		InsecureSkipVerify: s.config.InsecureSkipVerify,
	}
	if s.config.Debug {
		opts.Debug = restyutil.NewFilesystemOutput(".dev/resty/marklist")
	}
	session, err := marklist.NewSession(opts)
	if err != nil {
		return nil, err
	}
	endpoints, err := marklist.EndpointsFromBase(s.config.BaseURL)
	if err != nil {
		return nil, err
	}
	return marklist.Login(ctx, session, endpoints, marklist.Credentials{
		Username: profile.Username,
		Password: profile.Password,
	})
}

// Advance resolves auto steps on the scraper and announces the next
// manual step, options included, on the event channel. A nil step
// means the cascade is fully selected; nothing is announced then.
func (s Service) Advance(ctx context.Context, scraper StepAdvancer) (*marklist.Step, []marklist.Option, error) {
	step, opts, err := scraper.Advance(ctx)
	if err != nil {
		emit(s.events, Event{Kind: EventError, Err: err})
		return nil, nil, err
	}
	if step != nil {
		emit(s.events, Event{Kind: EventStepLoaded, Step: step.Name, Options: opts})
	}
	return step, opts, nil
}

// ScrapeCourse pulls the report for the scraper's current course
// selection and persists it.
func (s Service) ScrapeCourse(ctx context.Context, scraper CourseScraper) (marklist.ReportResult, error) {
	ctx, span := tracer.Start(ctx, "ScrapeCourse")
	defer span.End()

	result, err := scraper.FetchReport(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return marklist.ReportResult{}, err
	}
	err = s.store.SaveReport(ctx, result)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return marklist.ReportResult{}, err
	}

	emit(s.events, Event{Kind: EventReportReady, Course: result.CourseCode})
	return result, nil
}

// RunBatch scrapes every given course in sequence on one session. A
// failed course is logged and skipped; the batch keeps going. The
// context is only checked between courses since the portal expects
// each postback chain to run to completion.
func (s Service) RunBatch(ctx context.Context, scraper CourseScraper, courses []marklist.Option) error {
	ctx, span := tracer.Start(ctx, "RunBatch")
	defer span.End()

	var failed int
	for i, course := range courses {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			s.pace(ctx)
		}

		err := s.scrapeOne(ctx, scraper, course)
		if err != nil {
			failed++
			slog.WarnContext(
				ctx, "course scrape failed",
				"course", course.Label, "value", course.Value, "err", err,
			)
			emit(s.events, Event{Kind: EventError, Course: course.Label, Err: err})
		}
	}

	if failed == len(courses) && failed > 0 {
		err := fmt.Errorf("all %d courses failed", failed)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (s Service) scrapeOne(ctx context.Context, scraper CourseScraper, course marklist.Option) error {
	err := scraper.Select(ctx, marklist.StepCourse, course.Value)
	if err != nil {
		return err
	}
	emit(s.events, Event{Kind: EventSelected, Step: marklist.StepCourse, Course: course.Label})

	_, err = s.ScrapeCourse(ctx, scraper)
	return err
}

const defaultPaceSeconds = 2

// paceDelay resolves the configured pacing into a concrete delay. An
// unset (zero) config paces at the default; disabling requires an
// explicit negative value.
func (s Service) paceDelay() time.Duration {
	seconds := s.config.PaceSeconds
	if seconds == 0 {
		seconds = defaultPaceSeconds
	}
	if seconds < 0 {
		return 0
	}
	jitter, err := random.IntRange(0, 1000)
	if err != nil {
		jitter = 0
	}
	return time.Duration(seconds)*time.Second + time.Duration(jitter)*time.Millisecond
}

func (s Service) pace(ctx context.Context) {
	delay := s.paceDelay()
	if delay == 0 {
		return
	}
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}
