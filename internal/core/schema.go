package core

import (
	"errors"
	"fmt"
)

// FieldType is the declared type of a schema field.
type FieldType string

const (
	TypeNumber FieldType = "number"
	TypeText   FieldType = "text"
)

// SchemaField declares one typed metric.
type SchemaField struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is an explicit list of typed fields checked when records are
// ingested.
type Schema struct {
	Name   string
	Fields []SchemaField
}

var ErrSchemaViolation = errors.New("record does not match schema")

// MetricSchema is the monthly store performance record.
var MetricSchema = Schema{
	Name: "metric",
	Fields: []SchemaField{
		{Name: "totalSales", Type: TypeNumber, Required: true},
		{Name: "orderCount", Type: TypeNumber, Required: true},
		{Name: "averageOrderValue", Type: TypeNumber, Required: true},
		{Name: "topCategory", Type: TypeText, Required: true},
		{Name: "customerSatisfaction", Type: TypeNumber, Required: true},
		{Name: "newCustomers", Type: TypeNumber, Required: true},
		{Name: "returnRate", Type: TypeNumber, Required: true},
	},
}

// Validate checks the record's date and every declared field. Fields the
// schema does not declare are rejected, except storage metadata.
func (s Schema) Validate(r Record) error {
	if r.Date.IsEmpty() {
		return ErrMissingDate
	}
	declared := make(map[string]SchemaField, len(s.Fields))
	for _, f := range s.Fields {
		declared[f.Name] = f
		v, ok := r.Get(f.Name)
		if !ok {
			if f.Required {
				return fmt.Errorf("%w: %s: field %q is required", ErrSchemaViolation, r.Date, f.Name)
			}
			continue
		}
		switch f.Type {
		case TypeNumber:
			if !v.IsNumeric() {
				return fmt.Errorf("%w: %s: field %q must be a finite number", ErrSchemaViolation, r.Date, f.Name)
			}
		case TypeText:
			if !v.IsText() {
				return fmt.Errorf("%w: %s: field %q must be a string", ErrSchemaViolation, r.Date, f.Name)
			}
		}
	}
	for _, f := range r.Fields {
		if _, ok := declared[f.Name]; !ok && !IsMetadataField(f.Name) {
			return fmt.Errorf("%w: %s: unknown field %q", ErrSchemaViolation, r.Date, f.Name)
		}
	}
	return nil
}

// ValidateAll validates every record and rejects duplicate dates.
func (s Schema) ValidateAll(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if err := s.Validate(r); err != nil {
			return err
		}
		key := r.Date.String()
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: duplicate date %s", ErrSchemaViolation, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// NumericFields lists the declared number fields in schema order.
func (s Schema) NumericFields() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Type == TypeNumber {
			out = append(out, f.Name)
		}
	}
	return out
}
