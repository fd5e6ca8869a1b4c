package marklist

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type StepName string

const (
	StepYear           StepName = "year"
	StepFaculty        StepName = "faculty"
	StepRegulation     StepName = "regulation"
	StepPhase          StepName = "phase"
	StepDepartment     StepName = "department"
	StepSemester       StepName = "semester"
	StepDoor           StepName = "door"
	StepCourseSemester StepName = "course_semester"
	StepCourse         StepName = "course"
)

const (
	// placeholder label on every untouched dropdown
	placeholderMarker = "اختر"
	// phase dropdowns mix levels with unrelated study metadata, only
	// labels carrying this marker are actual levels
	levelMarker = "المستوى"
)

// Step statically describes one selection in the cascade. The sequence
// below never changes at runtime, only which option gets picked.
type Step struct {
	Name      StepName
	ElementID string
	// AutoIndex picks an option without caller input when >= 0. Out of
	// range falls back to index 0.
	AutoIndex int
	// KeepFirst truncates the cleaned option list when > 0.
	KeepFirst int
	// LabelFilter drops options whose label does not match.
	LabelFilter func(label string) bool
}

var Steps = []Step{
	{
		Name:      StepYear,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_acad_year",
		AutoIndex: -1,
		// only the four most recent academic years are offered
		KeepFirst: 4,
	},
	{
		Name:      StepFaculty,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_fac",
		AutoIndex: 0,
	},
	{
		Name:      StepRegulation,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_bylaw",
		AutoIndex: -1,
	},
	{
		Name:      StepPhase,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_phase",
		AutoIndex: -1,
		LabelFilter: func(label string) bool {
			return strings.Contains(label, levelMarker)
		},
	},
	{
		Name:      StepDepartment,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_dept",
		AutoIndex: -1,
	},
	{
		Name:      StepSemester,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_semester",
		AutoIndex: -1,
	},
	{
		Name:      StepDoor,
		ElementID: "ctl00_ContentPlaceHolder3_door",
		AutoIndex: 0,
	},
	{
		Name:      StepCourseSemester,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_semester_subject",
		AutoIndex: -1,
	},
	{
		Name:      StepCourse,
		ElementID: "ctl00_ContentPlaceHolder3_ddl_subj",
		AutoIndex: -1,
	},
}

func stepIndex(name StepName) (int, error) {
	for i, s := range Steps {
		if s.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("unknown step %q", name)
}

// Option is a (value, label) pair from a server <select>. Values are
// opaque server identifiers; labels are for humans. The server does not
// guarantee label uniqueness.
type Option struct {
	Value string
	Label string
}

func extractOptions(doc *goquery.Document, elementID string) []Option {
	var opts []Option
	doc.Find(fmt.Sprintf("select[id=%q] option", elementID)).Each(func(_ int, opt *goquery.Selection) {
		opts = append(opts, Option{
			Value: opt.AttrOr("value", ""),
			Label: strings.TrimSpace(opt.Text()),
		})
	})
	return opts
}

// cleanOptions drops placeholders: empty or zero values, the locale
// placeholder marker, and labels starting with the English one.
func cleanOptions(opts []Option) []Option {
	var out []Option
	for _, o := range opts {
		if o.Value == "" || o.Value == "0" {
			continue
		}
		if strings.Contains(o.Label, placeholderMarker) || strings.HasPrefix(o.Label, "Select") {
			continue
		}
		out = append(out, o)
	}
	return out
}

func applyPolicy(step Step, opts []Option) []Option {
	if step.LabelFilter != nil {
		var filtered []Option
		for _, o := range opts {
			if step.LabelFilter(o.Label) {
				filtered = append(filtered, o)
			}
		}
		opts = filtered
	}
	if step.KeepFirst > 0 && len(opts) > step.KeepFirst {
		opts = opts[:step.KeepFirst]
	}
	return opts
}
