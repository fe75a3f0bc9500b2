package download

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// ProgressEvent represents a batch progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// Progress is a snapshot of the batch counters. Every counter only grows
// while the batch runs.
type Progress struct {
	ItemsDone  int
	ItemsTotal int
	BytesDone  int64
	BytesTotal int64
}

// Fraction returns completed bytes over total bytes, falling back to items
// when no bundle declares a size.
func (p Progress) Fraction() float64 {
	if p.BytesTotal > 0 {
		return float64(p.BytesDone) / float64(p.BytesTotal)
	}
	if p.ItemsTotal > 0 {
		return float64(p.ItemsDone) / float64(p.ItemsTotal)
	}
	return 1
}
