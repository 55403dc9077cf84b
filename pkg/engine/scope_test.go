package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Minos/pkg/row"
)

func scopeRows(n int) []row.Row {
	rows := make([]row.Row, n)
	for i := range rows {
		rows[i] = row.Row{LineNumber: i + 1, Status: row.StatusOk}
	}
	return rows
}

func TestResolveScope_All(t *testing.T) {
	selected, err := ResolveScope(scopeRows(5), ScopeAll, 0)
	require.NoError(t, err)
	assert.Nil(t, selected, "all means no filter")
}

func TestResolveScope_SingleLine(t *testing.T) {
	selected, err := ResolveScope(scopeRows(5), ScopeSingleLine, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{3: {}}, selected)
}

func TestResolveScope_FromLine(t *testing.T) {
	selected, err := ResolveScope(scopeRows(5), ScopeFromLine, 3)
	require.NoError(t, err)
	assert.Equal(t, map[int]struct{}{3: {}, 4: {}, 5: {}}, selected)
}

func TestResolveScope_MissingTarget(t *testing.T) {
	_, err := ResolveScope(scopeRows(5), ScopeSingleLine, 0)
	assert.ErrorIs(t, err, ErrNoTargetSelected)

	_, err = ResolveScope(scopeRows(5), ScopeFromLine, 0)
	assert.ErrorIs(t, err, ErrNoTargetSelected)
}

func TestResolveScope_Unknown(t *testing.T) {
	_, err := ResolveScope(scopeRows(5), RunScope("everything"), 0)
	assert.ErrorIs(t, err, ErrUnknownScope)
}

func TestClampParallelism(t *testing.T) {
	assert.Equal(t, 1, clampParallelism(0))
	assert.Equal(t, 1, clampParallelism(-3))
	assert.Equal(t, 1, clampParallelism(1))
	assert.Equal(t, 4, clampParallelism(4))
	assert.Equal(t, 8, clampParallelism(8))
	assert.Equal(t, 8, clampParallelism(100))
}
