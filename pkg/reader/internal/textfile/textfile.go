// Package textfile holds the line walking and peak parsing shared by the
// line-oriented peak-list formats (MGF, PKL, MS2).
package textfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
)

const maxLineLength = 1024 * 1024

// Record is the byte range of one spectrum inside a file.
type Record struct {
	Offset int64
	Length int64
}

// End returns the offset just past the record.
func (r Record) End() int64 {
	return r.Offset + r.Length
}

// Walk calls fn for every line of r with the byte offset at which the line
// starts and its 1-based line number. The line passed to fn still carries
// its line terminator.
func Walk(r io.Reader, fn func(line string, offset int64, lineNum int) error) error {
	br := bufio.NewReader(r)
	var offset int64
	lineNum := 0
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			lineNum++
			if ferr := fn(line, offset, lineNum); ferr != nil {
				return fmt.Errorf("line %d: %w", lineNum, ferr)
			}
			offset += int64(len(line))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Scanner returns a line scanner over a single record of ra.
func Scanner(ra io.ReaderAt, rec Record) *bufio.Scanner {
	scanner := bufio.NewScanner(io.NewSectionReader(ra, rec.Offset, rec.Length))
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	return scanner
}

// ParsePeak parses a peak line (format: "mz intensity [extra...]")
func ParsePeak(line string) (core.Peak, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return core.Peak{}, fmt.Errorf("invalid peak format, expected at least 2 fields")
	}

	mz, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid m/z value: %w", err)
	}

	intensity, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return core.Peak{}, fmt.Errorf("invalid intensity value: %w", err)
	}

	return core.Peak{MZ: mz, Intensity: intensity}, nil
}

// IsPeakLine reports whether line starts with a number.
func IsPeakLine(line string) bool {
	if line == "" {
		return false
	}
	c := line[0]
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}

// ParseCharge extracts the first charge from values such as "2", "2+",
// "3-" or "2+ and 3+". The sign is dropped.
func ParseCharge(value string) (int, error) {
	value = strings.TrimLeft(strings.TrimSpace(value), "+-")
	end := 0
	for end < len(value) && value[end] >= '0' && value[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, fmt.Errorf("invalid charge '%s'", value)
	}
	return strconv.Atoi(value[:end])
}
