// Package mztab checks the layout of tab-separated mzTab files and counts
// the proteins, peptides and PSMs they report.
package mztab

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Severity of a parser message
type Severity int

const (
	Info Severity = iota
	Warn
	Error
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "Error"
	case Warn:
		return "Warn"
	}
	return "Info"
}

// Message is one problem found while parsing. Line is 1-based; 0 means the
// message concerns the whole file.
type Message struct {
	Severity Severity
	Line     int
	Text     string
}

func (m Message) String() string {
	if m.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s", m.Severity, m.Line, m.Text)
	}
	return fmt.Sprintf("[%s] %s", m.Severity, m.Text)
}

// Counts are the totals reported in an mzTab file
type Counts struct {
	Proteins int
	Peptides int
	PSMs     int
}

// Parser checks an mzTab file and returns every problem found
type Parser interface {
	Parse(r io.Reader) ([]Message, error)
}

// Compiler counts the contents of an mzTab file
type Compiler interface {
	Compile(r io.Reader) (Counts, error)
}

// Line prefixes. Each data section has a header line and data lines.
const (
	prefixMetadata = "MTD"
	prefixComment  = "COM"
)

var sections = map[string]string{
	"PRH": "PRT",
	"PEH": "PEP",
	"PSH": "PSM",
	"SMH": "SML",
}

var sectionOrder = []string{"PRH", "PEH", "PSH", "SMH"}

func isDataPrefix(prefix string) bool {
	for _, data := range sections {
		if data == prefix {
			return true
		}
	}
	return false
}

const maxLineLength = 16 * 1024 * 1024

// scanLines calls fn with the tab-separated fields of every non-blank line
func scanLines(r io.Reader, fn func(lineNum int, fields []string)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		fn(lineNum, fields)
	}
	return scanner.Err()
}
