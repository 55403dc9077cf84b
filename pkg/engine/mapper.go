package engine

import (
	"strings"

	"github.com/wehubfusion/Minos/pkg/lookup"
	"github.com/wehubfusion/Minos/pkg/row"
)

// Marker substrings surfaced by the provider's search pages. These match
// the provider's wording exactly and are compared verbatim.
const (
	// investigationMarker flags results the provider routed to manual
	// investigation.
	investigationMarker = "調査"

	// manualResearchMarker appears in the message when the provider asks
	// for a manual re-search of the address.
	manualResearchMarker = "要手動再検索"

	// unavailableMarker appears in free-form messages for out-of-area
	// addresses that never got a structured status.
	unavailableMarker = "未提供"

	// manualResearchMessage is the provider's full manual re-search prompt.
	// The fixed NoteManualResearch sentence is attached only on this exact
	// wording; the shorter marker above still routes the judgement.
	manualResearchMessage = "要手動再検索（住所をご確認ください）"
)

// Fixed diagnostic sentences attached to notes.
const (
	// NoteManualResearch is recorded when the provider displayed the
	// "cannot identify the address" image and asked for a manual re-search.
	NoteManualResearch = "「住所を特定できないため、担当者がお調べします」の画像有"

	// NoteBuildingUnmatched is recorded when no building candidate matched.
	NoteBuildingUnmatched = "建物名が一致する候補は見つかりませんでした"

	// NoteGenericFallback is the catch-all sentence. It is dropped from the
	// final note whenever one of the specific diagnostics above is present.
	NoteGenericFallback = "検索結果を確認できませんでした"
)

// MapResult maps a raw lookup result to a judgement. Precedence: the
// investigation markers win over the structured status, the structured
// status wins over message sniffing, and anything unrecognized is a
// failure.
func MapResult(result *lookup.Result) row.Judgement {
	if result == nil {
		return row.JudgementFailed
	}

	status := strings.ToLower(result.Status)
	message := result.Message

	var note, areaText string
	if result.Details != nil {
		note = result.Details.Note
		areaText = result.Details.ProvidedArea
	}

	if strings.Contains(message, manualResearchMarker) ||
		strings.Contains(message, investigationMarker) ||
		strings.Contains(note, investigationMarker) ||
		strings.Contains(areaText, investigationMarker) {
		return row.JudgementInvestigateNeeded
	}

	switch status {
	case lookup.StatusAvailable:
		return row.JudgementAvailable
	case lookup.StatusUnavailable:
		return row.JudgementUnavailable
	case lookup.StatusCancelled:
		return row.JudgementStopped
	}

	if strings.Contains(message, unavailableMarker) {
		return row.JudgementUnavailable
	}

	return row.JudgementFailed
}

// ExtractNote builds the human-readable note for a lookup result: the
// details note first, then each search note in order, then the fixed
// manual-re-search sentence when the message carries the provider's full
// re-search prompt. Segments are split on "/", trimmed, and de-duplicated
// by exact text; the generic fallback sentence is suppressed when a
// specific diagnostic is present.
func ExtractNote(result *lookup.Result) string {
	if result == nil {
		return ""
	}

	var parts []string
	if result.Details != nil {
		parts = appendUniqueSegments(parts, result.Details.Note)
	}
	for _, item := range result.SearchNotes {
		parts = appendUniqueSegments(parts, item)
	}
	if strings.Contains(strings.TrimSpace(result.Message), manualResearchMessage) {
		parts = appendUniqueSegments(parts, NoteManualResearch)
	}

	parts = suppressGenericFallback(parts)

	return strings.Join(parts, " / ")
}

// appendUniqueSegments splits a value on "/", trims each segment, and
// appends the ones not already present verbatim.
func appendUniqueSegments(parts []string, value string) []string {
	for _, segment := range strings.Split(value, "/") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		duplicate := false
		for _, existing := range parts {
			if existing == segment {
				duplicate = true
				break
			}
		}
		if !duplicate {
			parts = append(parts, segment)
		}
	}
	return parts
}

// suppressGenericFallback drops the generic fallback sentence when a
// specific diagnostic segment was also collected.
func suppressGenericFallback(parts []string) []string {
	specific := false
	for _, p := range parts {
		if strings.Contains(p, NoteManualResearch) || strings.Contains(p, NoteBuildingUnmatched) {
			specific = true
			break
		}
	}
	if !specific {
		return parts
	}

	kept := parts[:0]
	for _, p := range parts {
		if strings.Contains(p, NoteGenericFallback) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}
