package artifact

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Siddhant-K-code/recourse/pkg/types"
)

// Column names of the course table. The clustered CSV appends columnCluster.
const (
	columnTitle        = "course_title"
	columnOrganization = "course_organization"
	columnCertificate  = "course_Certificate_type"
	columnRating       = "course_rating"
	columnDifficulty   = "course_difficulty"
	columnEnrolled     = "course_students_enrolled"
	columnCluster      = "cluster"
)

// LoadCourses reads a raw course catalog CSV, the training input. Header
// columns are matched by name so extra columns and reordered files still
// parse. Rows with an unparseable rating load with rating 0.
func LoadCourses(path string) ([]types.Course, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open courses file: %w", err)
	}
	defer f.Close()

	courses, _, err := readCourseTable(f, false)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return courses, nil
}

func marshalCoursesCSV(courses []types.Course, clusters []int) ([]byte, error) {
	if len(clusters) != len(courses) {
		return nil, fmt.Errorf("cluster assignments (%d) do not match courses (%d)", len(clusters), len(courses))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{columnTitle, columnOrganization, columnCertificate, columnRating, columnDifficulty, columnEnrolled, columnCluster}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for i, c := range courses {
		record := []string{
			c.Title,
			c.Organization,
			c.CertificateType,
			strconv.FormatFloat(c.Rating, 'g', -1, 64),
			c.Difficulty,
			c.StudentsEnrolled,
			strconv.Itoa(clusters[i]),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func unmarshalCoursesCSV(data []byte) ([]types.Course, []int, error) {
	return readCourseTable(bytes.NewReader(data), true)
}

func readCourseTable(r io.Reader, withCluster bool) ([]types.Course, []int, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	required := []string{columnTitle, columnOrganization, columnCertificate, columnRating, columnDifficulty, columnEnrolled}
	if withCluster {
		required = append(required, columnCluster)
	}
	for _, name := range required {
		if _, ok := col[name]; !ok {
			return nil, nil, fmt.Errorf("missing column %q", name)
		}
	}

	var courses []types.Course
	var clusters []int
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(name string) string {
			i := col[name]
			if i >= len(record) {
				return ""
			}
			return record[i]
		}

		rating, _ := strconv.ParseFloat(field(columnRating), 64)
		courses = append(courses, types.Course{
			Title:            field(columnTitle),
			Organization:     field(columnOrganization),
			CertificateType:  field(columnCertificate),
			Rating:           rating,
			Difficulty:       field(columnDifficulty),
			StudentsEnrolled: field(columnEnrolled),
		})

		if withCluster {
			c, err := strconv.Atoi(field(columnCluster))
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: invalid cluster %q", line, field(columnCluster))
			}
			clusters = append(clusters, c)
		}
	}
	return courses, clusters, nil
}
