package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wehubfusion/Minos/pkg/engine"
	"github.com/wehubfusion/Minos/pkg/row"
)

func TestNewEnvelope_RowUpdated(t *testing.T) {
	ev := engine.RowUpdated{Row: row.Row{
		LineNumber: 3,
		PostalCode: "123-4567",
		Address:    "東京都千代田区1-1",
		Status:     row.StatusOk,
		Judgement:  row.JudgementAvailable,
	}}

	env, err := NewEnvelope("run-1", ev)
	require.NoError(t, err)

	assert.Equal(t, "row", env.Type)
	assert.Equal(t, "run-1", env.RunID)
	require.NotNil(t, env.Row)
	assert.Equal(t, 3, env.Row.LineNumber)
	assert.WithinDuration(t, time.Now().UTC(), env.Timestamp, time.Minute)
}

func TestNewEnvelope_WorkerLog(t *testing.T) {
	env, err := NewEnvelope("run-1", engine.WorkerLog{WorkerID: 2, Message: "3行目を判定中"})
	require.NoError(t, err)
	assert.Equal(t, "worker_log", env.Type)
	assert.Equal(t, 2, env.WorkerID)
	assert.Equal(t, "3行目を判定中", env.Message)
}

func TestNewEnvelope_Progress(t *testing.T) {
	env, err := NewEnvelope("run-1", engine.Progress{Current: 4, Total: 10})
	require.NoError(t, err)
	assert.Equal(t, "progress", env.Type)
	assert.Equal(t, 4, env.Current)
	assert.Equal(t, 10, env.Total)
}

func TestNewEnvelope_Done(t *testing.T) {
	env, err := NewEnvelope("run-1", engine.Done{FailedLines: []int{2, 5}, Cancelled: true})
	require.NoError(t, err)
	assert.Equal(t, "done", env.Type)
	assert.Equal(t, []int{2, 5}, env.FailedLines)
	assert.True(t, env.Cancelled)
}

func TestEnvelope_WireShape(t *testing.T) {
	env, err := NewEnvelope("run-1", engine.Progress{Current: 1, Total: 2})
	require.NoError(t, err)

	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, "progress", decoded["type"])
	assert.Equal(t, "run-1", decoded["runId"])
	assert.Contains(t, decoded, "timestamp")
	assert.NotContains(t, decoded, "row", "unused payload groups are omitted")
	assert.NotContains(t, decoded, "failedLines")
}
