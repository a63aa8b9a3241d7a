package mztab

import (
	"fmt"
	"io"
)

// Counter counts distinct protein accessions (PRT), distinct peptide
// sequences (PEP and PSM) and distinct PSM_ID values (PSM).
type Counter struct{}

var _ Compiler = Counter{}

func (Counter) Compile(r io.Reader) (Counts, error) {
	proteins := make(map[string]struct{})
	peptides := make(map[string]struct{})
	psms := make(map[string]struct{})

	columns := make(map[string]map[string]int) // data prefix -> column name -> index
	var errLine error

	err := scanLines(r, func(lineNum int, fields []string) {
		if errLine != nil {
			return
		}
		prefix := fields[0]
		if data, ok := sections[prefix]; ok {
			cols := make(map[string]int, len(fields))
			for i, name := range fields {
				cols[name] = i
			}
			columns[data] = cols
			return
		}
		if !isDataPrefix(prefix) {
			return
		}
		cols, ok := columns[prefix]
		if !ok {
			errLine = fmt.Errorf("line %d: %s line before its section header", lineNum, prefix)
			return
		}
		value := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(fields) {
				return ""
			}
			return fields[i]
		}

		switch prefix {
		case "PRT":
			addValue(proteins, value("accession"))
		case "PEP":
			addValue(peptides, value("sequence"))
		case "PSM":
			addValue(peptides, value("sequence"))
			addValue(psms, value("PSM_ID"))
		}
	})
	if err != nil {
		return Counts{}, err
	}
	if errLine != nil {
		return Counts{}, errLine
	}
	return Counts{Proteins: len(proteins), Peptides: len(peptides), PSMs: len(psms)}, nil
}

func addValue(set map[string]struct{}, v string) {
	if v == "" || v == "null" {
		return
	}
	set[v] = struct{}{}
}
