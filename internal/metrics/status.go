package metrics

import "sort"

// FailureBucket is the number of failed runs sharing an error class.
type FailureBucket struct {
	Class string
	Count int
}

// FlattenFailures converts an error class histogram into rows sorted by
// descending count, then by class for stability.
func FlattenFailures(errors map[string]int) []FailureBucket {
	if len(errors) == 0 {
		return nil
	}
	rows := make([]FailureBucket, 0, len(errors))
	for class, count := range errors {
		rows = append(rows, FailureBucket{Class: class, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Class < rows[j].Class
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
