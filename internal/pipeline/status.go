// =============================================================================
// status.go - Run status report
// =============================================================================
package pipeline

// StatusReport summarizes per-source outcomes of a run.
type StatusReport struct {
	TotalSources  int                     `json:"total_sources"`
	Successful    int                     `json:"successful"`
	Failed        int                     `json:"failed"`
	TotalArticles int                     `json:"total_articles"`
	Sources       map[string]SourceStatus `json:"sources"`
}

// Report aggregates statuses. TotalArticles is the sum of per-source counts,
// i.e. before deduplication.
func Report(statuses map[string]SourceStatus) StatusReport {
	r := StatusReport{
		TotalSources: len(statuses),
		Sources:      make(map[string]SourceStatus, len(statuses)),
	}
	for name, s := range statuses {
		r.Sources[name] = s
		switch s.Status {
		case StatusSuccess:
			r.Successful++
		case StatusFailed:
			r.Failed++
		}
		r.TotalArticles += s.Count
	}
	return r
}

// FailedSources returns the names of failed sources, sorted.
func (r StatusReport) FailedSources() []string {
	var out []string
	for name, s := range r.Sources {
		if s.Status == StatusFailed {
			out = append(out, name)
		}
	}
	return sortStrings(out)
}
