// Package validator checks identification files of a submission and
// reports the findings.
package validator

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/ZanzyTHEbar/errbuilder-go"

	"github.com/ChrisMcGann/pxvalidator/pkg/report"
)

// Validator produces a report for one input file. The error is reserved
// for failures that prevent a report, such as cancellation.
type Validator interface {
	Validate(ctx context.Context) (*report.Report, error)
}

// DefaultMzTolerance is the accepted difference between the declared and
// recomputed peptide m/z
const DefaultMzTolerance = 0.05

func requireFile(path, what string) error {
	if strings.TrimSpace(path) == "" {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(what + " path is required")
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return errbuilder.New().
			WithCode(errbuilder.CodeNotFound).
			WithMsg("the provided file name can't be found: " + path).
			WithCause(err)
	}
	if err != nil {
		return errbuilder.New().
			WithCode(errbuilder.CodeInternal).
			WithMsg("failed to stat " + path).
			WithCause(err)
	}
	if info.IsDir() {
		return errbuilder.New().
			WithCode(errbuilder.CodeInvalidArgument).
			WithMsg(what + " must be a file: " + path)
	}
	return nil
}
