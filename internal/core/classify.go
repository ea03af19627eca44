package core

// ClassifyNumeric returns the fields that hold a finite number on every
// record, in the order they appear on the first record. The date and
// storage metadata are never classified. No records means no fields.
func ClassifyNumeric(records []Record) []string {
	if len(records) == 0 {
		return []string{}
	}

	fields := make([]string, 0, len(records[0].Fields))
	seen := make(map[string]struct{}, len(records[0].Fields))
	for _, f := range records[0].Fields {
		if IsMetadataField(f.Name) {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			continue
		}
		seen[f.Name] = struct{}{}
		if numericEverywhere(records, f.Name) {
			fields = append(fields, f.Name)
		}
	}
	return fields
}

func numericEverywhere(records []Record, name string) bool {
	for _, r := range records {
		v, ok := r.Get(name)
		if !ok || !v.IsNumeric() {
			return false
		}
	}
	return true
}
