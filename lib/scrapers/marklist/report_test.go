package marklist

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const gradeReportPage = `
<html><body>
<span>MATH101 كود المقرر</span>
<table id="ctl00_ContentPlaceHolder3_gv_list">
	<tr align="center">
		<td>نهاية العام</td><td>أعمال السنة</td><td>التحريري</td>
		<td>f1</td><td>f2</td><td>f3</td><td>اسم الطالب</td><td>رقم الجلوس</td><td>م</td>
	</tr>
	<tr>
		<td>90</td><td>35</td><td>55</td>
		<td>x</td><td>x</td><td>x</td><td>احمد علي</td><td>1042</td><td>12</td>
	</tr>
	<tr>
		<td>77</td><td>30</td><td>47</td>
		<td>x</td><td>x</td><td>x</td><td>&nbsp;سارة محمود&nbsp;</td><td>1043</td><td>2</td>
	</tr>
	<tr>
		<td>81</td><td>33</td><td>48</td>
		<td>x</td><td>x</td><td>x</td><td>احمد علي</td><td>1044</td><td>10</td>
	</tr>
	<tr>
		<td>skipped</td><td>row</td><td>with</td><td>five</td><td>cells</td>
	</tr>
	<tr>
		<td>a</td><td>b</td><td>c</td>
		<td>x</td><td>x</td><td>x</td><td>اسم الطالب</td><td>seat</td><td>99</td>
	</tr>
	<tr>
		<td>a</td><td>b</td><td>c</td>
		<td>x</td><td>x</td><td>x</td><td>مالك حسن</td><td>1050</td><td>total</td>
	</tr>
	<tr>
		<td>a</td><td>b</td><td>c</td>
		<td>x</td><td>x</td><td>x</td><td>هالة سمير</td><td>1051</td><td>+7</td>
	</tr>
</table>
</body></html>
`

func TestParseReport(t *testing.T) {
	doc := docFromString(t, gradeReportPage)
	result := ParseReport(doc, ParserOptions{})

	if result.CourseCode != "MATH101" {
		t.Fatalf("wrong course code: %q", result.CourseCode)
	}

	expectedHeaders := []string{"التحريري", "أعمال السنة", "نهاية العام"}
	diff := cmp.Diff(expectedHeaders, result.GradeHeaders)
	if diff != "" {
		t.Fatal(diff)
	}

	// sorted by id, the id=12 duplicate of "احمد علي" dropped, the
	// header-name row and the non-numeric and signed serial rows
	// skipped
	expected := []StudentRecord{
		{ID: 2, Seat: "1043", Name: "سارة محمود", Grades: []string{"47", "30", "77"}},
		{ID: 10, Seat: "1044", Name: "احمد علي", Grades: []string{"48", "33", "81"}},
	}
	diff = cmp.Diff(expected, result.Students)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseReportIdempotent(t *testing.T) {
	doc := docFromString(t, gradeReportPage)

	first := ParseReport(doc, ParserOptions{})
	second := ParseReport(doc, ParserOptions{})

	diff := cmp.Diff(first, second)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestParseReportOrderInvariants(t *testing.T) {
	doc := docFromString(t, gradeReportPage)
	result := ParseReport(doc, ParserOptions{})

	seen := map[string]bool{}
	for i, s := range result.Students {
		if i > 0 && result.Students[i-1].ID > s.ID {
			t.Fatal("students are not sorted ascending by id")
		}
		if seen[s.Name] {
			t.Fatalf("duplicate name survived dedup: %q", s.Name)
		}
		seen[s.Name] = true
	}
}

func TestParseReportNoTableFallback(t *testing.T) {
	doc := docFromString(t, `
		<html><body>
		<table>
			<tr>
				<td>g1</td><td>g2</td><td>g3</td>
				<td>x</td><td>x</td><td>x</td><td>طالب وحيد</td><td>2001</td><td>1</td>
			</tr>
		</table>
		</body></html>
	`)
	result := ParseReport(doc, ParserOptions{})

	if result.CourseCode != courseCodeFallback {
		t.Fatalf("expected fallback course code, got %q", result.CourseCode)
	}
	if len(result.Students) != 1 {
		t.Fatalf("expected one student from the row scan fallback, got %d", len(result.Students))
	}
	if len(result.GradeHeaders) != 0 {
		t.Fatal("no center-aligned header row means no grade headers")
	}
}

func TestParseReportEmpty(t *testing.T) {
	doc := docFromString(t, `<html><body><p>لا توجد نتائج</p></body></html>`)
	result := ParseReport(doc, ParserOptions{})

	if len(result.Students) != 0 {
		t.Fatal("expected an empty but valid result")
	}
}

func TestParseReportPlainListMode(t *testing.T) {
	// a header row with no more cells than the fixed set yields no
	// grade columns
	doc := docFromString(t, `
		<table id="ctl00_ContentPlaceHolder3_gv_list">
			<tr align="center">
				<td>a</td><td>b</td><td>c</td><td>d</td><td>e</td><td>f</td>
			</tr>
		</table>
	`)
	result := ParseReport(doc, ParserOptions{})
	if len(result.GradeHeaders) != 0 {
		t.Fatalf("expected no grade headers, got %v", result.GradeHeaders)
	}
}
