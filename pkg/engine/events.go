package engine

import "github.com/wehubfusion/Minos/pkg/row"

// Event is one entry in the ordered run event stream. Exactly one
// RowUpdated and one Progress event is emitted per processed row, in
// completion order; WorkerLog events are ordered within a worker; exactly
// one Done event closes the stream.
type Event interface {
	isEvent()
}

// RowUpdated carries a snapshot of a row whose judgement just changed.
type RowUpdated struct {
	Row row.Row `json:"row"`
}

// WorkerLog is a progress/log line tagged with the emitting worker's index.
type WorkerLog struct {
	WorkerID int    `json:"workerId"`
	Message  string `json:"message"`
}

// Progress reports how many in-scope rows have finished.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}

// Done is the single authoritative end-of-run signal. FailedLines is sorted
// ascending; no further events follow Done.
type Done struct {
	FailedLines []int `json:"failedLines"`
	Cancelled   bool  `json:"cancelled"`
}

func (RowUpdated) isEvent() {}
func (WorkerLog) isEvent()  {}
func (Progress) isEvent()   {}
func (Done) isEvent()       {}
