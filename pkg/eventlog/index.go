package eventlog

import (
	"sort"
	"time"
)

// Filter selects records. Zero-valued fields match everything.
type Filter struct {
	Kinds     []Kind
	Endpoint  string
	Signal    string
	Component string
}

// Match reports whether rec satisfies the filter.
func (f Filter) Match(rec Record) bool {
	if f.Endpoint != "" && rec.Endpoint != f.Endpoint {
		return false
	}
	if f.Signal != "" && rec.Signal != f.Signal {
		return false
	}
	if f.Component != "" && rec.Component != f.Component {
		return false
	}
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if rec.Kind == k {
			return true
		}
	}
	return false
}

// Index is an immutable, time-ordered view over a set of records.
type Index struct {
	records []Record
}

// NewIndex sorts a copy of records by time.
func NewIndex(records []Record) *Index {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At().Before(sorted[j].At())
	})
	return &Index{records: sorted}
}

// Len returns the number of indexed records.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.records)
}

// Window returns matching records at or after since, oldest first.
func (ix *Index) Window(since time.Time, f Filter) []Record {
	if ix == nil {
		return nil
	}
	start := sort.Search(len(ix.records), func(i int) bool {
		return !ix.records[i].At().Before(since)
	})

	var out []Record
	for _, rec := range ix.records[start:] {
		if f.Match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// Count returns the number of matching records at or after since.
func (ix *Index) Count(since time.Time, f Filter) int {
	return len(ix.Window(since, f))
}

// Last returns the newest matching record.
func (ix *Index) Last(f Filter) (Record, bool) {
	if ix == nil {
		return Record{}, false
	}
	for i := len(ix.records) - 1; i >= 0; i-- {
		if f.Match(ix.records[i]) {
			return ix.records[i], true
		}
	}
	return Record{}, false
}

// All returns the indexed records, oldest first.
func (ix *Index) All() []Record {
	if ix == nil {
		return nil
	}
	return ix.records
}
