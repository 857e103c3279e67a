package engine

import "time"

// DefaultBuffer is the fixed business buffer added to both ends of a job's
// time window when checking conflicts between a worker's applications. Travel
// time between two real-world jobs is assumed non-zero. It is not
// configurable per job.
const DefaultBuffer = 3 * time.Hour

// WindowsConflict reports whether two job time windows conflict for the same
// worker once each is expanded by the buffer on both ends. Expanded ranges
// that share only an endpoint do not conflict: the comparison is strict.
func WindowsConflict(aStart, aEnd, bStart, bEnd time.Time, buffer time.Duration) bool {
	aFrom := aStart.Add(-buffer)
	aTo := aEnd.Add(buffer)
	bFrom := bStart.Add(-buffer)
	bTo := bEnd.Add(buffer)
	return aFrom.Before(bTo) && bFrom.Before(aTo)
}
