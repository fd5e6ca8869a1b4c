package marklist

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"marklist-backend/lib/htmlutil"
	"marklist-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"go.opentelemetry.io/otel/codes"
)

const (
	reportButtonLabel  = "تقرير الطلاب"
	resultsTableID     = "ctl00_ContentPlaceHolder3_gv_list"
	courseCodeFallback = "Student_List"
	// column header for the student name, rejected if it leaks into a
	// data row
	studentNameHeader = "اسم الطالب"
)

// the course code precedes its label in the page text (RTL markup)
var courseCodeRegex = regexp.MustCompile(`([A-Za-z0-9]+)\s*كود المقرر`)

// the server needs a moment to materialize the report into session
// state before the report page renders it
const reportSettleDelay = time.Second

// StudentRecord is one parsed report row. Immutable once produced.
type StudentRecord struct {
	ID   int
	Seat string
	Name string
	// grade column values in header order
	Grades []string
}

type ReportResult struct {
	CourseCode string
	// grade column labels, already reversed out of the RTL markup order
	GradeHeaders []string
	// ascending by ID, at most one record per distinct name
	Students []StudentRecord
}

// ParserOptions holds the report layout constants. The plain-list mode
// and the grade-table mode disagree on how many trailing cells are
// fixed metadata, so these are knobs rather than literals.
type ParserOptions struct {
	// FixedTrailingColumns is the number of non-grade columns at the
	// row end (serial, seat, name and their neighbors).
	FixedTrailingColumns int
	// MinRowCells is the minimum cell count for a row to qualify as a
	// student row.
	MinRowCells int
}

func (o ParserOptions) withDefaults() ParserOptions {
	if o.FixedTrailingColumns == 0 {
		o.FixedTrailingColumns = 6
	}
	if o.MinRowCells == 0 {
		o.MinRowCells = 8
	}
	return o
}

// FetchReport triggers report generation for the selected course and
// parses the report page. Valid only once the cascade is ready. An
// empty student list is a valid result, not an error.
func (c *Cascade) FetchReport(ctx context.Context) (ReportResult, error) {
	ctx, span := tracer.Start(ctx, "cascade:FetchReport")
	defer span.End()

	if !c.ready {
		err := fmt.Errorf("course step has not been selected")
		span.SetStatus(codes.Error, err.Error())
		return ReportResult{}, err
	}

	// The report postback resubmits the full form with the report
	// button present and no change event.
	fields := ExtractFields(c.page.Doc)
	for _, sel := range c.selections {
		i, err := stepIndex(sel.Step)
		if err != nil {
			continue
		}
		name, ok := selectName(c.page.Doc, Steps[i].ElementID)
		if !ok {
			continue
		}
		fields[name] = sel.Value
	}
	fields[reportButtonField] = reportButtonLabel

	_, err := c.session.PostForm(ctx, c.endpoints.PickerURL, fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report postback failed")
		return ReportResult{}, fmt.Errorf("report postback: %w", err)
	}

	select {
	case <-time.After(reportSettleDelay):
	case <-ctx.Done():
		return ReportResult{}, ctx.Err()
	}

	page, err := c.session.Get(ctx, c.endpoints.ReportURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "report fetch failed")
		return ReportResult{}, fmt.Errorf("report fetch: %w", err)
	}

	result := ParseReport(page.Doc, c.parserOpts)
	if len(result.Students) == 0 {
		slog.InfoContext(ctx, "report contained no students",
			"course_code", result.CourseCode)
	}
	return result, nil
}

// ParseReport extracts the course code, grade headers and student rows
// from a report page. Malformed rows are skipped, duplicate names are
// collapsed; neither aborts parsing. Parsing the same document twice
// yields the same result.
func ParseReport(doc *goquery.Document, opts ParserOptions) ReportResult {
	opts = opts.withDefaults()

	result := ReportResult{
		CourseCode:   courseCode(doc),
		GradeHeaders: gradeHeaders(doc, opts),
	}

	rows := doc.Find(fmt.Sprintf("table[id=%q] tr", resultsTableID))
	if rows.Length() == 0 {
		// report markup varies by deployment mode, scan everything
		rows = doc.Find("tr")
	}

	var students []StudentRecord
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := htmlutil.RowCells(row)
		if len(cells) < opts.MinRowCells {
			return
		}

		// in this right-to-left layout the serial id is the last cell
		serial := cells[len(cells)-1]
		if !digitsOnly(serial) {
			return
		}
		id, _ := strconv.Atoi(serial)

		name := textutil.CleanName(cells[len(cells)-3])
		if name == "" || strings.Contains(name, studentNameHeader) {
			return
		}

		students = append(students, StudentRecord{
			ID:     id,
			Seat:   cells[len(cells)-2],
			Name:   name,
			Grades: gradeCells(cells, opts),
		})
	})

	sort.SliceStable(students, func(i, j int) bool {
		return students[i].ID < students[j].ID
	})

	result.Students = dedupByName(students)
	logNearDuplicates(result.Students)
	return result
}

// digitsOnly is stricter than strconv alone: serial cells are unsigned
// ASCII digits, a leading sign means the cell is something else.
func digitsOnly(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func courseCode(doc *goquery.Document) string {
	match := courseCodeRegex.FindStringSubmatch(doc.Text())
	if match == nil {
		return courseCodeFallback
	}
	return match[1]
}

// gradeHeaders pulls the grade column labels off the center-aligned
// header row, dropping the trailing fixed columns and reversing the
// remainder to undo the RTL rendering order. Fewer cells than the fixed
// set means the report is in plain-list mode with no grade columns.
func gradeHeaders(doc *goquery.Document, opts ParserOptions) []string {
	header := doc.Find(`tr[align="center"]`).First()
	if header.Length() == 0 {
		return nil
	}
	cells := htmlutil.RowCells(header)
	if len(cells) <= opts.FixedTrailingColumns {
		return nil
	}
	return reversed(cells[:len(cells)-opts.FixedTrailingColumns])
}

func gradeCells(cells []string, opts ParserOptions) []string {
	if len(cells) <= opts.FixedTrailingColumns {
		return nil
	}
	return reversed(cells[:len(cells)-opts.FixedTrailingColumns])
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[len(in)-1-i] = v
	}
	return out
}

// dedupByName keeps the first record per distinct name. The input is
// already sorted by id, so "first" is deterministic. Whether a repeated
// name is truly the same student or a split row is an open data-quality
// question, hence the warning instead of silence.
func dedupByName(students []StudentRecord) []StudentRecord {
	var out []StudentRecord
	seen := map[string]int{}
	for _, s := range students {
		if keptID, ok := seen[s.Name]; ok {
			slog.Warn("duplicate student name in report",
				"name", s.Name, "kept_id", keptID, "dropped_id", s.ID)
			continue
		}
		seen[s.Name] = s.ID
		out = append(out, s)
	}
	return out
}

// logNearDuplicates flags pairs of distinct names that are similar
// enough to suggest a split row. Diagnostic only, the records stay.
func logNearDuplicates(students []StudentRecord) {
	for i := 0; i < len(students); i++ {
		for j := i + 1; j < len(students); j++ {
			sim := matchr.JaroWinkler(
				textutil.NormalizeName(students[i].Name),
				textutil.NormalizeName(students[j].Name),
				false,
			)
			if sim >= 0.97 {
				slog.Warn("near-duplicate student names",
					"a", students[i].Name, "a_id", students[i].ID,
					"b", students[j].Name, "b_id", students[j].ID,
					"similarity", sim)
			}
		}
	}
}
