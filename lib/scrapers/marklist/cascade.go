package marklist

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/marklist")

// sessionMarker is an element id that is always present on a live
// picker page. Its absence after a postback means the server dropped
// the session state.
const sessionMarker = "ddl_acad_year"

// Selection is one chosen step value. Values are resent on every
// subsequent postback; the server resets the cascade otherwise.
type Selection struct {
	Step  StepName
	Value string
}

// Cascade walks the fixed step sequence over one Session. All state is
// explicit here, so independent cascades on independent sessions can
// run in parallel; two cascades must never share a Session.
type Cascade struct {
	session    *Session
	endpoints  Endpoints
	page       *Page
	selections []Selection
	ready      bool
	parserOpts ParserOptions
}

func NewCascade(session *Session, endpoints Endpoints, page *Page) *Cascade {
	return &Cascade{
		session:   session,
		endpoints: endpoints,
		page:      page,
	}
}

// SetParserOptions overrides the report layout constants, for
// deployments whose report mode differs from the default grade table.
func (c *Cascade) SetParserOptions(opts ParserOptions) {
	c.parserOpts = opts
}

// Selections returns a copy of the chosen values so far, in step order.
func (c *Cascade) Selections() []Selection {
	out := make([]Selection, len(c.selections))
	copy(out, c.selections)
	return out
}

// Ready reports whether the terminal step has been selected and the
// report may be fetched.
func (c *Cascade) Ready() bool {
	return c.ready
}

// Options extracts, cleans and policy-filters the option list for a
// step from the current page. An empty slice is a valid answer: the
// server renders later selects empty until their dependencies are set.
func (c *Cascade) Options(step StepName) ([]Option, error) {
	i, err := stepIndex(step)
	if err != nil {
		return nil, err
	}
	s := Steps[i]
	return applyPolicy(s, cleanOptions(extractOptions(c.page.Doc, s.ElementID))), nil
}

// Select records value for the step and posts it back. All selections
// at or after the step are discarded first, so re-choosing an earlier
// step invalidates its tail. Every still-valid selection is resent with
// the postback. Selecting the terminal step marks the cascade
// ready-for-report instead of advancing.
func (c *Cascade) Select(ctx context.Context, step StepName, value string) error {
	ctx, span := tracer.Start(ctx, "cascade:Select")
	defer span.End()
	span.SetAttributes(
		attribute.String("step", string(step)),
		attribute.String("value", value),
	)

	i, err := stepIndex(step)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	c.truncateFrom(i)
	c.selections = append(c.selections, Selection{Step: step, Value: value})

	err = c.postback(ctx, Steps[i])
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "postback failed")
		return fmt.Errorf("step %s: %w", step, err)
	}

	if step == StepCourse {
		c.ready = true
	}
	return nil
}

// NextStep returns the first step without a selection.
func (c *Cascade) NextStep() (Step, bool) {
	chosen := map[StepName]bool{}
	for _, sel := range c.selections {
		chosen[sel.Step] = true
	}
	for _, s := range Steps {
		if !chosen[s.Name] {
			return s, true
		}
	}
	return Step{}, false
}

// Advance resolves auto-selected steps until it reaches one that needs
// a caller decision, returning that step and its cleaned options. A nil
// step means every step has been selected.
func (c *Cascade) Advance(ctx context.Context) (*Step, []Option, error) {
	for {
		step, ok := c.NextStep()
		if !ok {
			return nil, nil, nil
		}

		opts, err := c.Options(step.Name)
		if err != nil {
			return nil, nil, err
		}
		if len(opts) == 0 {
			return nil, nil, fmt.Errorf("step %s: %w", step.Name, ErrNoOptions)
		}

		if step.AutoIndex < 0 {
			return &step, opts, nil
		}

		idx := step.AutoIndex
		if idx >= len(opts) {
			idx = 0
		}
		slog.DebugContext(ctx, "auto-selecting step",
			"step", step.Name, "label", opts[idx].Label)
		err = c.Select(ctx, step.Name, opts[idx].Value)
		if err != nil {
			return nil, nil, err
		}
	}
}

func (c *Cascade) truncateFrom(stepIdx int) {
	kept := c.selections[:0]
	for _, sel := range c.selections {
		i, err := stepIndex(sel.Step)
		if err != nil || i >= stepIdx {
			continue
		}
		kept = append(kept, sel)
	}
	c.selections = kept
	c.ready = false
}

// postback resends every stored selection plus the change event for
// `step`, then replaces the page with the response. No batching: posting
// after every step is the safe interpretation of the protocol, the
// server just needs all prior values present each time.
func (c *Cascade) postback(ctx context.Context, step Step) error {
	overrides := map[string]string{}
	for _, sel := range c.selections {
		i, err := stepIndex(sel.Step)
		if err != nil {
			continue
		}
		overrides[Steps[i].ElementID] = sel.Value
	}

	fields := BuildPostback(c.page.Doc, overrides, step.ElementID)
	page, err := c.session.PostForm(ctx, c.endpoints.PickerURL, fields)
	if err != nil {
		return err
	}
	if !bytes.Contains(page.Body, []byte(sessionMarker)) {
		return fmt.Errorf("%s: %w", c.endpoints.PickerURL, ErrSessionExpired)
	}

	c.page = page
	return nil
}
