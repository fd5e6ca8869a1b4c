package roster

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"marklist-backend/lib/scrapers/marklist"

	_ "modernc.org/sqlite"
)

// Store persists parsed rosters. Spreadsheet rendering lives outside
// this module; the database is the durable handoff point.
type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

type SavedCourse struct {
	Code      string
	Students  int
	ScrapedAt time.Time
}

// SaveReport replaces any previously stored roster for the same course
// code. Scraping the same course twice is routine, keeping both copies
// is not useful.
func (s Store) SaveReport(ctx context.Context, result marklist.ReportResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `DELETE FROM course WHERE code = ?`, result.CourseCode)
	if err != nil {
		return err
	}

	headers, err := json.Marshal(result.GradeHeaders)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(
		ctx,
		`INSERT INTO course (code, grade_headers, scraped_at) VALUES (?, ?, ?)`,
		result.CourseCode, string(headers), time.Now().Unix(),
	)
	if err != nil {
		return err
	}
	courseId, err := res.LastInsertId()
	if err != nil {
		return err
	}

	for _, student := range result.Students {
		grades, err := json.Marshal(student.Grades)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(
			ctx,
			`INSERT INTO student (course_id, serial, seat, name, grades) VALUES (?, ?, ?, ?, ?)`,
			courseId, student.ID, student.Seat, student.Name, string(grades),
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s Store) Courses(ctx context.Context) ([]SavedCourse, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT course.code, course.scraped_at, COUNT(student.id)
		FROM course
		LEFT JOIN student ON student.course_id = course.id
		GROUP BY course.id
		ORDER BY course.code
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SavedCourse
	for rows.Next() {
		var course SavedCourse
		var scrapedAt int64
		err = rows.Scan(&course.Code, &scrapedAt, &course.Students)
		if err != nil {
			return nil, err
		}
		course.ScrapedAt = time.Unix(scrapedAt, 0)
		out = append(out, course)
	}
	return out, rows.Err()
}

// Roster loads a stored course back into the shape the parser produced.
func (s Store) Roster(ctx context.Context, code string) (marklist.ReportResult, error) {
	result := marklist.ReportResult{CourseCode: code}

	var courseId int64
	var headers string
	err := s.db.QueryRowContext(
		ctx,
		`SELECT id, grade_headers FROM course WHERE code = ?`,
		code,
	).Scan(&courseId, &headers)
	if err != nil {
		return result, err
	}
	err = json.Unmarshal([]byte(headers), &result.GradeHeaders)
	if err != nil {
		return result, err
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT serial, seat, name, grades FROM student WHERE course_id = ? ORDER BY serial`,
		courseId,
	)
	if err != nil {
		return result, err
	}
	defer rows.Close()

	for rows.Next() {
		var student marklist.StudentRecord
		var grades string
		err = rows.Scan(&student.ID, &student.Seat, &student.Name, &grades)
		if err != nil {
			return result, err
		}
		err = json.Unmarshal([]byte(grades), &student.Grades)
		if err != nil {
			return result, err
		}
		result.Students = append(result.Students, student)
	}
	return result, rows.Err()
}
