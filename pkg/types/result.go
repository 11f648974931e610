package types

// RunStats is the running tally of a sync run.
type RunStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Add returns the element-wise sum of s and o.
func (s RunStats) Add(o RunStats) RunStats {
	return RunStats{
		Processed: s.Processed + o.Processed,
		Succeeded: s.Succeeded + o.Succeeded,
		Failed:    s.Failed + o.Failed,
	}
}

// Unaccounted is the number of processed records that neither succeeded nor
// failed. Records dropped before the write stage without being counted as
// failed show up here.
func (s RunStats) Unaccounted() int {
	return s.Processed - s.Succeeded - s.Failed
}
