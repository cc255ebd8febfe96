package sync

// RecordError ties a per-record failure to the record it hit.
type RecordError struct {
	ID     string
	Number int
	Err    error
}

func (e RecordError) Error() string {
	return e.Err.Error()
}

// Outcome reports one synchronization pass: disjoint lists of record ids
// that were created, updated from remote, or pushed, plus per-record
// failures. A record appears in at most one of the first three per pass.
type Outcome struct {
	Created []string
	Updated []string
	Pushed  []string
	Errors  []RecordError
}

// Applied returns the number of records the pass changed on either side.
func (o *Outcome) Applied() int {
	return len(o.Created) + len(o.Updated) + len(o.Pushed)
}
