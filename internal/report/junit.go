// Package report reads, writes, synthesizes and merges xUnit2 JUnit XML reports.
package report

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// JUnit XML structures, in the xunit2 family pytest emits

// TestSuites is the root element
type TestSuites struct {
	XMLName   xml.Name    `xml:"testsuites"`
	Name      string      `xml:"name,attr,omitempty"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Errors    int         `xml:"errors,attr"`
	Skipped   int         `xml:"skipped,attr"`
	Time      float64     `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr,omitempty"`
	Suites    []TestSuite `xml:"testsuite"`
}

// TestSuite represents one pytest session, or one module after merging
type TestSuite struct {
	XMLName    xml.Name   `xml:"testsuite"`
	Name       string     `xml:"name,attr"`
	Tests      int        `xml:"tests,attr"`
	Failures   int        `xml:"failures,attr"`
	Errors     int        `xml:"errors,attr"`
	Skipped    int        `xml:"skipped,attr"`
	Time       float64    `xml:"time,attr"`
	Timestamp  string     `xml:"timestamp,attr,omitempty"`
	Hostname   string     `xml:"hostname,attr,omitempty"`
	Properties []Property `xml:"properties>property,omitempty"`
	TestCases  []TestCase `xml:"testcase"`
	SystemOut  string     `xml:"system-out,omitempty"`
	SystemErr  string     `xml:"system-err,omitempty"`
}

// Property is a suite level key/value pair
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TestCase represents a single test case
type TestCase struct {
	Name      string   `xml:"name,attr"`
	ClassName string   `xml:"classname,attr"`
	File      string   `xml:"file,attr,omitempty"`
	Line      int      `xml:"line,attr,omitempty"`
	Time      float64  `xml:"time,attr"`
	Failure   *Problem `xml:"failure,omitempty"`
	Error     *Problem `xml:"error,omitempty"`
	Skipped   *Problem `xml:"skipped,omitempty"`
	SystemOut string   `xml:"system-out,omitempty"`
	SystemErr string   `xml:"system-err,omitempty"`
}

// Problem is the body of a failure, error or skip
type Problem struct {
	Message string `xml:"message,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Content string `xml:",chardata"`
}

// ErrNotJUnit is returned for XML whose root is neither testsuites nor testsuite
var ErrNotJUnit = errors.New("not a junit report")

// Decode reads a report whose root is either <testsuites> or a bare <testsuite>
func Decode(r io.Reader) (*TestSuites, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}

	root, err := rootElement(data)
	if err != nil {
		return nil, err
	}

	switch root {
	case "testsuites":
		var doc TestSuites
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}
		return &doc, nil
	case "testsuite":
		var suite TestSuite
		if err := xml.Unmarshal(data, &suite); err != nil {
			return nil, fmt.Errorf("parse report: %w", err)
		}
		doc := &TestSuites{Suites: []TestSuite{suite}}
		doc.Recount()
		return doc, nil
	}
	return nil, fmt.Errorf("%w: root element %q", ErrNotJUnit, root)
}

// ReadFile decodes the report at path
func ReadFile(path string) (*TestSuites, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

func rootElement(data []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := dec.Token()
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrNotJUnit, err)
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local, nil
		}
	}
}

// Encode writes doc with an XML header
func Encode(w io.Writer, doc *TestSuites) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	encoder := xml.NewEncoder(w)
	encoder.Indent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Write replaces the file at path with doc. The file is written next to its
// destination and renamed so readers never see a partial report.
func Write(path string, doc *TestSuites) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".unit-*.xml")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, doc); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// Recount recomputes the root totals from the suites. Suites whose attributes are
// all zero but which hold test cases get their totals from the cases.
func (d *TestSuites) Recount() {
	d.Tests, d.Failures, d.Errors, d.Skipped, d.Time = 0, 0, 0, 0, 0
	for i := range d.Suites {
		s := &d.Suites[i]
		if s.Tests == 0 && len(s.TestCases) > 0 {
			s.countCases()
		}
		d.Tests += s.Tests
		d.Failures += s.Failures
		d.Errors += s.Errors
		d.Skipped += s.Skipped
		d.Time += s.Time
	}
}

func (s *TestSuite) countCases() {
	s.Tests, s.Failures, s.Errors, s.Skipped = len(s.TestCases), 0, 0, 0
	for _, tc := range s.TestCases {
		switch {
		case tc.Failure != nil:
			s.Failures++
		case tc.Error != nil:
			s.Errors++
		case tc.Skipped != nil:
			s.Skipped++
		}
	}
}
