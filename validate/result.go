package validate

import (
	"fmt"
	"strings"
)

// Message is one finding about one entity.
type Message struct {
	// ID is the id of the entity the message is about.
	ID string

	// Text describes the problem.
	Text string
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s", m.ID, m.Text)
}

// Result collects the errors and warnings of a validation run.
type Result struct {
	Errors   []Message
	Warnings []Message
}

// OK reports whether the run found neither errors nor warnings.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && len(r.Warnings) == 0
}

// HasErrors reports whether the run found errors.
func (r Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings reports whether the run found warnings.
func (r Result) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Concat appends the messages of o to r.
func (r *Result) Concat(o Result) {
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// Err returns the errors as a List, nil when there are none. Warnings are
// not reported.
func (r Result) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return List(append([]Message(nil), r.Errors...))
}

func (r *Result) errorf(id, format string, args ...any) {
	r.Errors = append(r.Errors, Message{ID: id, Text: fmt.Sprintf(format, args...)})
}

func (r *Result) warnf(id, format string, args ...any) {
	r.Warnings = append(r.Warnings, Message{ID: id, Text: fmt.Sprintf(format, args...)})
}

// List is an error holding one or more validation errors.
type List []Message

// Error returns a compact summary of the list.
func (l List) Error() string {
	switch len(l) {
	case 0:
		return "no validation errors"
	case 1:
		return l[0].String()
	}
	var b strings.Builder
	b.WriteString(l[0].String())
	fmt.Fprintf(&b, " (and %d more)", len(l)-1)
	return b.String()
}
