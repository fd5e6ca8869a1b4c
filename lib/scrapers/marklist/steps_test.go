package marklist

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/go-cmp/cmp"
)

func docFromString(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestCleanOptions(t *testing.T) {
	testCases := []struct {
		name     string
		input    []Option
		expected []Option
	}{
		{
			name: "placeholders dropped",
			input: []Option{
				{Value: "", Label: "..."},
				{Value: "0", Label: "2023"},
				{Value: "1", Label: "-- اختر --"},
				{Value: "2", Label: "Select a year"},
				{Value: "3", Label: "2023"},
			},
			expected: []Option{
				{Value: "3", Label: "2023"},
			},
		},
		{
			name:     "empty input",
			input:    nil,
			expected: nil,
		},
		{
			name: "all valid",
			input: []Option{
				{Value: "5", Label: "a"},
				{Value: "6", Label: "b"},
			},
			expected: []Option{
				{Value: "5", Label: "a"},
				{Value: "6", Label: "b"},
			},
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			diff := cmp.Diff(test.expected, cleanOptions(test.input))
			if diff != "" {
				t.Fatal(diff)
			}
		})
	}
}

func TestYearStepKeepsFourMostRecent(t *testing.T) {
	doc := docFromString(t, `
		<select id="ctl00_ContentPlaceHolder3_ddl_acad_year" name="ctl00$ContentPlaceHolder3$ddl_acad_year">
			<option value="0">اختر</option>
			<option value="5">2023</option>
			<option value="6">2022</option>
			<option value="7">2021</option>
			<option value="8">2020</option>
			<option value="9">2019</option>
		</select>
	`)

	year := Steps[0]
	got := applyPolicy(year, cleanOptions(extractOptions(doc, year.ElementID)))

	expected := []Option{
		{Value: "5", Label: "2023"},
		{Value: "6", Label: "2022"},
		{Value: "7", Label: "2021"},
		{Value: "8", Label: "2020"},
	}
	diff := cmp.Diff(expected, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestYearStepShorterListUntouched(t *testing.T) {
	year := Steps[0]
	input := []Option{
		{Value: "5", Label: "2023"},
		{Value: "6", Label: "2022"},
	}
	got := applyPolicy(year, input)
	diff := cmp.Diff(input, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestPhaseStepFiltersLevels(t *testing.T) {
	var phase Step
	for _, s := range Steps {
		if s.Name == StepPhase {
			phase = s
		}
	}

	input := []Option{
		{Value: "1", Label: "المستوى الأول"},
		{Value: "2", Label: "برنامج عام"},
		{Value: "3", Label: "المستوى الثاني"},
		{Value: "4", Label: "دراسات عليا"},
	}
	got := applyPolicy(phase, input)

	expected := []Option{
		{Value: "1", Label: "المستوى الأول"},
		{Value: "3", Label: "المستوى الثاني"},
	}
	diff := cmp.Diff(expected, got)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestStepIndexUnknown(t *testing.T) {
	_, err := stepIndex("nonsense")
	if err == nil {
		t.Fatal("expected an error for an unknown step")
	}
}
