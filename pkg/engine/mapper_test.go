package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wehubfusion/Minos/pkg/lookup"
	"github.com/wehubfusion/Minos/pkg/row"
)

func TestMapResult(t *testing.T) {
	tests := []struct {
		name   string
		result *lookup.Result
		want   row.Judgement
	}{
		{"nil result", nil, row.JudgementFailed},
		{
			"available",
			&lookup.Result{Status: lookup.StatusAvailable},
			row.JudgementAvailable,
		},
		{
			"unavailable",
			&lookup.Result{Status: lookup.StatusUnavailable},
			row.JudgementUnavailable,
		},
		{
			"cancelled",
			&lookup.Result{Status: lookup.StatusCancelled},
			row.JudgementStopped,
		},
		{
			"manual re-search beats status",
			&lookup.Result{Status: lookup.StatusAvailable, Message: "要手動再検索（住所をご確認ください）"},
			row.JudgementInvestigateNeeded,
		},
		{
			"investigation in details note",
			&lookup.Result{Status: lookup.StatusUnavailable, Details: &lookup.Details{Note: "調査中のエリアです"}},
			row.JudgementInvestigateNeeded,
		},
		{
			"investigation in provided area",
			&lookup.Result{Status: lookup.StatusError, Details: &lookup.Details{ProvidedArea: "調査対象"}},
			row.JudgementInvestigateNeeded,
		},
		{
			"unavailable sniffed from message",
			&lookup.Result{Status: lookup.StatusError, Message: "このエリアは未提供です"},
			row.JudgementUnavailable,
		},
		{
			"unrecognized is a failure",
			&lookup.Result{Status: lookup.StatusError, Message: "something broke"},
			row.JudgementFailed,
		},
		{
			"empty status is a failure",
			&lookup.Result{},
			row.JudgementFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapResult(tt.result))
		})
	}
}

func TestExtractNote(t *testing.T) {
	tests := []struct {
		name   string
		result *lookup.Result
		want   string
	}{
		{"nil result", nil, ""},
		{
			"details note only",
			&lookup.Result{Details: &lookup.Details{Note: "集合住宅"}},
			"集合住宅",
		},
		{
			"search notes join in order",
			&lookup.Result{SearchNotes: []string{"提供エリア外", "設備確認中"}},
			"提供エリア外 / 設備確認中",
		},
		{
			"duplicate segments collapse",
			&lookup.Result{
				Details:     &lookup.Details{Note: "集合住宅 / 設備確認中"},
				SearchNotes: []string{"設備確認中", "集合住宅"},
			},
			"集合住宅 / 設備確認中",
		},
		{
			"full re-search prompt appends the fixed sentence",
			&lookup.Result{Message: "要手動再検索（住所をご確認ください）"},
			NoteManualResearch,
		},
		{
			"bare re-search marker adds no note",
			&lookup.Result{Message: "要手動再検索"},
			"",
		},
		{
			"generic fallback suppressed next to a specific diagnostic",
			&lookup.Result{
				SearchNotes: []string{NoteGenericFallback, NoteBuildingUnmatched},
			},
			NoteBuildingUnmatched,
		},
		{
			"generic fallback kept when nothing specific",
			&lookup.Result{SearchNotes: []string{NoteGenericFallback}},
			NoteGenericFallback,
		},
		{
			"blank segments dropped",
			&lookup.Result{Details: &lookup.Details{Note: " / 集合住宅 / "}},
			"集合住宅",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractNote(tt.result))
		})
	}
}

func TestExtractNote_JoinStable(t *testing.T) {
	// Feeding a joined note back through produces the same string.
	first := ExtractNote(&lookup.Result{SearchNotes: []string{"A", "B"}})
	second := ExtractNote(&lookup.Result{Details: &lookup.Details{Note: first}})
	assert.Equal(t, first, second)
}
