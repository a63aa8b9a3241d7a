package mztab

import (
	"fmt"
	"io"
	"strings"
)

var mandatoryMetadata = []struct {
	key      string
	severity Severity
}{
	{"mzTab-version", Error},
	{"mzTab-mode", Error},
	{"mzTab-type", Error},
	{"description", Warn},
}

// LineParser checks line prefixes, section ordering, column counts and
// the mandatory metadata keys.
type LineParser struct{}

var _ Parser = LineParser{}

func (LineParser) Parse(r io.Reader) ([]Message, error) {
	var msgs []Message
	add := func(sev Severity, line int, text string, args ...any) {
		msgs = append(msgs, Message{Severity: sev, Line: line, Text: fmt.Sprintf(text, args...)})
	}

	metadata := make(map[string]string)
	headers := make(map[string]int) // data prefix -> column count
	rows := make(map[string]int)

	err := scanLines(r, func(lineNum int, fields []string) {
		prefix := fields[0]
		switch {
		case prefix == prefixComment:
		case prefix == prefixMetadata:
			if len(fields) < 3 {
				add(Error, lineNum, "metadata line needs a key and a value")
				return
			}
			if len(headers) > 0 {
				add(Warn, lineNum, "metadata line %q after the first section header", fields[1])
			}
			if _, dup := metadata[fields[1]]; dup {
				add(Error, lineNum, "duplicate metadata key %q", fields[1])
				return
			}
			metadata[fields[1]] = fields[2]
		case sections[prefix] != "":
			data := sections[prefix]
			if _, dup := headers[data]; dup {
				add(Error, lineNum, "duplicate %s header", prefix)
				return
			}
			headers[data] = len(fields)
		case isDataPrefix(prefix):
			cols, ok := headers[prefix]
			if !ok {
				add(Error, lineNum, "%s line before its section header", prefix)
				return
			}
			if len(fields) != cols {
				add(Error, lineNum, "%s line has %d columns, header has %d", prefix, len(fields), cols)
			}
			rows[prefix]++
		default:
			add(Error, lineNum, "unknown line prefix %q", prefix)
		}
	})
	if err != nil {
		return msgs, err
	}

	for _, m := range mandatoryMetadata {
		if _, ok := metadata[m.key]; !ok {
			add(m.severity, 0, "mandatory metadata %q is missing", m.key)
		}
	}
	if v, ok := metadata["mzTab-version"]; ok && !strings.HasPrefix(v, "1.0") {
		add(Warn, 0, "mzTab-version %q is not 1.0", v)
	}
	if mode, ok := metadata["mzTab-mode"]; ok && mode != "Summary" && mode != "Complete" {
		add(Error, 0, "mzTab-mode %q must be Summary or Complete", mode)
	}
	if typ, ok := metadata["mzTab-type"]; ok && typ != "Identification" && typ != "Quantification" {
		add(Error, 0, "mzTab-type %q must be Identification or Quantification", typ)
	}
	for _, header := range sectionOrder {
		data := sections[header]
		if _, ok := headers[data]; ok && rows[data] == 0 {
			add(Info, 0, "%s section has a header but no rows", header)
		}
	}
	return msgs, nil
}
