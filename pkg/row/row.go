// Package row defines the record type that flows through the judgement
// pipeline, along with input validation and normalization of the raw CSV
// values. Rows are identified by their 1-based line number, assigned once
// at load time and kept stable for the lifetime of the dataset.
package row

// InputStatus describes the outcome of validating a raw input record.
// It is set once during validation and treated as read-only afterwards.
type InputStatus string

const (
	// StatusOk indicates the record passed validation and is eligible for lookup.
	StatusOk InputStatus = "OK"

	// StatusBlank indicates both the postal code and the address were empty.
	StatusBlank InputStatus = "空行"

	// StatusMissingField indicates exactly one of postal code / address was empty.
	StatusMissingField InputStatus = "入力不足"

	// StatusMalformedPostalCode indicates the postal code did not match ddd-dddd.
	StatusMalformedPostalCode InputStatus = "郵便番号形式エラー"
)

// Judgement is the terminal outcome of checking one row against the lookup
// service. A row starts at JudgementNotRun and transitions exactly once per
// run attempt; re-running a row overwrites the previous value.
type Judgement string

const (
	JudgementNotRun            Judgement = "未実行"
	JudgementAvailable         Judgement = "提供可能"
	JudgementUnavailable       Judgement = "未提供"
	JudgementInvestigateNeeded Judgement = "要調査"
	JudgementStopped           Judgement = "停止"
	JudgementFailed            Judgement = "失敗"
)

// Row represents one input record identified by its 1-based line number.
type Row struct {
	// LineNumber is the row's identity. Line numbers are unique within a
	// dataset and are never reused across copies passed through the event
	// stream.
	LineNumber int `json:"lineNumber"`

	// PostalCode is the normalized postal code in ddd-dddd form.
	PostalCode string `json:"postalCode"`

	// Address is the normalized address text.
	Address string `json:"address"`

	// Status is the validation outcome for the raw record.
	Status InputStatus `json:"status"`

	// Judgement is the result of the most recent run attempt.
	Judgement Judgement `json:"judgement"`

	// Note carries the human-readable explanation attached to the judgement.
	Note string `json:"note,omitempty"`
}

// Clone returns a copy of the row. Event consumers receive clones so that
// worker-side mutation is never observed half-updated.
func (r *Row) Clone() Row {
	return *r
}
