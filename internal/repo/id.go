package repo

// Identified is anything carrying a record id.
type Identified interface {
	RecordID() int
}

// NextID returns one more than the largest id in records, treating negative
// and missing ids as 0. An empty collection yields 1.
func NextID[S ~[]R, R Identified](records S) int {
	maxID := 0
	for _, r := range records {
		maxID = max(maxID, r.RecordID())
	}
	return maxID + 1
}
