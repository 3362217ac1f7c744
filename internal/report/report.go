// Package report renders the outcome of a reconciliation run.
package report

import (
	"fmt"
	"io"
	"math/big"

	"github.com/vietddude/unstuck/internal/core/domain"
)

// Reporter writes a finished run somewhere a human or a machine can read it.
type Reporter interface {
	Report(result *domain.RunResult) error
}

type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
)

// New returns the reporter for the given format.
func New(format Format, w io.Writer) (Reporter, error) {
	switch format {
	case "", FormatText:
		return NewTextReporter(w), nil
	case FormatJSONL:
		return NewJSONReporter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

func weiString(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
