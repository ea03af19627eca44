package core

// ResolveFields intersects the requested names with the classified ones,
// keeping request order and dropping duplicates and unknown names. An
// empty request, or one that matches nothing, resolves to every
// classified field.
func ResolveFields(requested, classified []string) []string {
	allowed := make(map[string]struct{}, len(classified))
	for _, name := range classified {
		allowed[name] = struct{}{}
	}

	resolved := make([]string, 0, len(requested))
	taken := make(map[string]struct{}, len(requested))
	for _, name := range requested {
		if _, ok := allowed[name]; !ok {
			continue
		}
		if _, dup := taken[name]; dup {
			continue
		}
		taken[name] = struct{}{}
		resolved = append(resolved, name)
	}

	if len(resolved) == 0 {
		return append([]string{}, classified...)
	}
	return resolved
}

// Project reshapes each record to its date plus the given fields, in the
// given order. Fields a record does not carry are left out.
func Project(records []Record, fields []string) []Record {
	out := make([]Record, len(records))
	for i, r := range records {
		p := Record{Date: r.Date, Fields: make([]Field, 0, len(fields))}
		for _, name := range fields {
			if v, ok := r.Get(name); ok {
				p.Fields = append(p.Fields, Field{Name: name, Value: v.clone()})
			}
		}
		out[i] = p
	}
	return out
}

// UnknownFields returns the requested names ResolveFields dropped.
func UnknownFields(requested, classified []string) []string {
	allowed := make(map[string]struct{}, len(classified))
	for _, name := range classified {
		allowed[name] = struct{}{}
	}
	var unknown []string
	for _, name := range requested {
		if _, ok := allowed[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}
