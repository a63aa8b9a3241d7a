package spectra

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ChrisMcGann/pxvalidator/pkg/core"
	"github.com/ChrisMcGann/pxvalidator/pkg/reader"
)

const scanPrefix = "scan="

// Strategy names the rule that matched a declared id to a reader id.
type Strategy int

const (
	// NoMatch means no rule found exactly one id.
	NoMatch Strategy = iota
	// ExactMatch is a declared id present verbatim in the listing.
	ExactMatch
	// SubstringMatch is the only listed id containing the declared id.
	SubstringMatch
	// ScanTokenMatch is the only listed id whose scan token equals scan=<id>.
	ScanTokenMatch
)

func (s Strategy) String() string {
	switch s {
	case ExactMatch:
		return "exact"
	case SubstringMatch:
		return "substring"
	case ScanTokenMatch:
		return "scan-token"
	}
	return "none"
}

// NormalizeID strips a leading "scan=" from a declared id.
func NormalizeID(declared string) string {
	return strings.TrimPrefix(declared, scanPrefix)
}

// idIndex holds the id listing of one reader together with the lookups
// derived from it. The listing never changes, so neither does the index.
type idIndex struct {
	ids        []string
	exact      map[string]struct{}
	scanTokens []string // per id: first whitespace token containing "scan", else the id
}

func newIDIndex(ids []string) *idIndex {
	x := &idIndex{
		ids:        ids,
		exact:      make(map[string]struct{}, len(ids)),
		scanTokens: make([]string, len(ids)),
	}
	for i, id := range ids {
		x.exact[id] = struct{}{}
		x.scanTokens[i] = scanToken(id)
	}
	return x
}

func scanToken(id string) string {
	for _, token := range strings.Fields(id) {
		if strings.Contains(token, "scan") {
			return token
		}
	}
	return id
}

// strategies run in order; the first one yielding exactly one id wins.
var strategies = []struct {
	kind  Strategy
	match func(x *idIndex, id string) (string, bool)
}{
	{ExactMatch, (*idIndex).matchExact},
	{SubstringMatch, (*idIndex).matchSubstring},
	{ScanTokenMatch, (*idIndex).matchScanToken},
}

func (x *idIndex) matchExact(id string) (string, bool) {
	_, ok := x.exact[id]
	return id, ok
}

func (x *idIndex) matchSubstring(id string) (string, bool) {
	return unique(x.ids, func(i int) bool {
		return strings.Contains(x.ids[i], id)
	})
}

func (x *idIndex) matchScanToken(id string) (string, bool) {
	want := scanPrefix + id
	return unique(x.ids, func(i int) bool {
		return strings.EqualFold(x.scanTokens[i], want)
	})
}

// unique returns the single id for which keep is true. Zero or several
// candidates are both a miss.
func unique(ids []string, keep func(i int) bool) (string, bool) {
	found := -1
	for i := range ids {
		if !keep(i) {
			continue
		}
		if found >= 0 {
			return "", false
		}
		found = i
	}
	if found < 0 {
		return "", false
	}
	return ids[found], true
}

func (x *idIndex) match(declared string) (string, Strategy, bool) {
	id := NormalizeID(declared)
	for _, s := range strategies {
		if found, ok := s.match(x, id); ok {
			return found, s.kind, true
		}
	}
	return "", NoMatch, false
}

// Match finds the reader id a declared id refers to. It reports which
// strategy matched, or false if no strategy found exactly one id.
func Match(ids []string, declared string) (string, Strategy, bool) {
	return newIDIndex(ids).match(declared)
}

// resolve maps declared onto the reader listing and fetches the spectrum.
// Survey scans are never returned.
func resolve(r reader.Reader, x *idIndex, declared string) (*core.Spectrum, error) {
	id, strategy, ok := x.match(declared)
	if !ok {
		return nil, fmt.Errorf("%w: no unique match for %q", ErrNotFound, declared)
	}

	spec, err := r.SpectrumByID(id)
	if err != nil {
		return nil, err
	}
	if spec.MSLevel == 1 {
		return nil, fmt.Errorf("%w: %q resolves to MS1 spectrum %q", ErrNotFound, declared, id)
	}

	log.Debug().
		Str("declared", declared).
		Str("id", id).
		Stringer("strategy", strategy).
		Msg("resolved spectrum")
	return spec, nil
}
