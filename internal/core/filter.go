package core

// FilterRange keeps the records whose date lies inside rng, in their
// original order. A nil range returns a copy of every record. A range
// whose From is after its To matches nothing.
func FilterRange(records []Record, rng *DateRange) []Record {
	if rng == nil {
		return CloneRecords(records)
	}
	out := make([]Record, 0, len(records))
	if rng.From.Compare(rng.To) > 0 {
		return out
	}
	for _, r := range records {
		if rng.Contains(r.Date) {
			out = append(out, r.Clone())
		}
	}
	return out
}
