package gridder

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is wrapped by errors caused by the kernel
	// parameters or by samples that do not fit the target's channel count.
	ErrConfiguration = errors.New("configuration error")

	// ErrInput is wrapped by errors caused by malformed sample data.
	ErrInput = errors.New("input error")
)

// maxReportedRecords caps the record list carried by an InputError.
const maxReportedRecords = 20

// InputError reports malformed samples. Records lists the first offending
// sample indices; Count is the total number found.
type InputError struct {
	Reason  string
	Records []int
	Count   int
}

func (e *InputError) Error() string {
	if e.Count == 0 {
		return fmt.Sprintf("%v: %s", ErrInput, e.Reason)
	}
	ids := make([]string, len(e.Records))
	for i, r := range e.Records {
		ids[i] = fmt.Sprint(r)
	}
	more := ""
	if e.Count > len(e.Records) {
		more = fmt.Sprintf(" and %d more", e.Count-len(e.Records))
	}
	return fmt.Sprintf("%v: %s (records %s%s)", ErrInput, e.Reason, strings.Join(ids, ", "), more)
}

func (e *InputError) Unwrap() error { return ErrInput }

// recordList collects offending indices up to maxReportedRecords.
type recordList struct {
	ids   []int
	count int
}

func (l *recordList) add(i int) {
	if len(l.ids) < maxReportedRecords {
		l.ids = append(l.ids, i)
	}
	l.count++
}

func (l *recordList) err(reason string) error {
	if l.count == 0 {
		return nil
	}
	return &InputError{Reason: reason, Records: l.ids, Count: l.count}
}
