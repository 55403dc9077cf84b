package engine

import (
	"errors"

	"github.com/wehubfusion/Minos/pkg/row"
)

// RunScope selects which rows a run processes.
type RunScope string

const (
	// ScopeAll processes every row.
	ScopeAll RunScope = "all"

	// ScopeSingleLine processes only the chosen line.
	ScopeSingleLine RunScope = "single"

	// ScopeFromLine processes the chosen line and everything after it.
	ScopeFromLine RunScope = "from"
)

// ErrNoTargetSelected indicates a scope that needs a chosen line was
// resolved without one.
var ErrNoTargetSelected = errors.New("run scope requires a target line but none was selected")

// ErrUnknownScope indicates an unrecognized RunScope value.
var ErrUnknownScope = errors.New("unknown run scope")

// ResolveScope turns a scope plus an optional chosen line into the concrete
// set of line numbers to process. A nil set means "no filter": process every
// row. targetLine 0 means no line was chosen.
func ResolveScope(rows []row.Row, scope RunScope, targetLine int) (map[int]struct{}, error) {
	switch scope {
	case ScopeAll:
		return nil, nil

	case ScopeSingleLine:
		if targetLine <= 0 {
			return nil, ErrNoTargetSelected
		}
		return map[int]struct{}{targetLine: {}}, nil

	case ScopeFromLine:
		if targetLine <= 0 {
			return nil, ErrNoTargetSelected
		}
		selected := make(map[int]struct{})
		for _, r := range rows {
			if r.LineNumber >= targetLine {
				selected[r.LineNumber] = struct{}{}
			}
		}
		return selected, nil

	default:
		return nil, ErrUnknownScope
	}
}
