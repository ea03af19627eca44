package core

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// DateLayout is the calendar-day layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// DateField is the name every record carries its date under.
const DateField = "date"

type (
	// Date is a calendar day. The wrapped time is always UTC midnight.
	Date struct {
		time.Time
	}

	// DateRange is an inclusive [From, To] window of days.
	DateRange struct {
		From Date
		To   Date
	}

	// Field is one named metric value on a record.
	Field struct {
		Name  string
		Value Value
	}

	// Record is one time-bucketed metric snapshot. Fields keep the order
	// in which the source delivered them.
	Record struct {
		Date   Date
		Fields []Field
	}
)

var (
	ErrMissingDate = errors.New("missing date field in one or more data points")
	ErrEmptyRange  = errors.New("date range requires both from and to")
)

// MalformedDateError reports a date string that could not be parsed.
type MalformedDateError struct {
	Input string
	Err   error
}

func (e *MalformedDateError) Error() string {
	return fmt.Sprintf("malformed date %q: %v", e.Input, e.Err)
}

func (e *MalformedDateError) Unwrap() error {
	return e.Err
}

// ParseDate parses a YYYY-MM-DD day or an RFC 3339 timestamp, dropping
// the time of day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, &MalformedDateError{Input: s, Err: errors.New("empty date")}
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t.Year(), int(t.Month()), t.Day()), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, &MalformedDateError{Input: s, Err: err}
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for fixtures and seed data.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// String formats the date as YYYY-MM-DD, or "" for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to
// or after other.
func (d Date) Compare(other Date) int {
	return d.Time.Compare(other.Time)
}

// NewDateRange parses an inclusive range from two date strings.
func NewDateRange(from, to string) (DateRange, error) {
	if strings.TrimSpace(from) == "" || strings.TrimSpace(to) == "" {
		return DateRange{}, ErrEmptyRange
	}
	f, err := ParseDate(from)
	if err != nil {
		return DateRange{}, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{From: f, To: t}, nil
}

// Contains reports whether d falls inside the range, bounds included.
func (r DateRange) Contains(d Date) bool {
	return d.Compare(r.From) >= 0 && d.Compare(r.To) <= 0
}

// Get returns the value of the named field.
func (r Record) Get(name string) (Value, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// Names returns the record's field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.Fields))
	for i, f := range r.Fields {
		names[i] = f.Name
	}
	return names
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := Record{Date: r.Date}
	if r.Fields != nil {
		out.Fields = make([]Field, len(r.Fields))
		for i, f := range r.Fields {
			out.Fields[i] = Field{Name: f.Name, Value: f.Value.clone()}
		}
	}
	return out
}

// Set replaces the named field or appends it when absent.
func (r *Record) Set(name string, v Value) {
	for i := range r.Fields {
		if r.Fields[i].Name == name {
			r.Fields[i].Value = v
			return
		}
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: v})
}

// CloneRecords deep-copies a record slice. A nil input yields an empty,
// non-nil slice.
func CloneRecords(in []Record) []Record {
	out := make([]Record, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// ValidateDates fails with ErrMissingDate if any record has no date.
func ValidateDates(records []Record) error {
	for _, r := range records {
		if r.Date.IsEmpty() {
			return ErrMissingDate
		}
	}
	return nil
}

// metadataFields are storage bookkeeping names that are never metrics.
var metadataFields = map[string]struct{}{
	"_id":        {},
	"id":         {},
	"__v":        {},
	"createdAt":  {},
	"updatedAt":  {},
	"created_at": {},
	"updated_at": {},
}

// IsMetadataField reports whether name is the date or a storage-internal
// field.
func IsMetadataField(name string) bool {
	if name == DateField {
		return true
	}
	_, ok := metadataFields[name]
	return ok
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
