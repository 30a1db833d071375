package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	t.Parallel()

	boom := "boom"
	statuses := map[string]SourceStatus{
		"A": {Status: StatusSuccess, Count: 10},
		"B": {Status: StatusSuccess, Count: 0},
		"C": {Status: StatusFailed, Count: 0, Error: &boom},
		"D": {Status: StatusSuccess, Count: 3},
	}

	r := Report(statuses)
	assert.Equal(t, 4, r.TotalSources)
	assert.Equal(t, 3, r.Successful)
	assert.Equal(t, 1, r.Failed)
	assert.Equal(t, 13, r.TotalArticles)
	assert.Equal(t, r.TotalSources, r.Successful+r.Failed)
	assert.Equal(t, []string{"C"}, r.FailedSources())
	assert.Equal(t, statuses, r.Sources)
}

func TestReportEmpty(t *testing.T) {
	t.Parallel()

	r := Report(nil)
	assert.Zero(t, r.TotalSources)
	assert.Zero(t, r.TotalArticles)
	assert.Empty(t, r.FailedSources())
	assert.NotNil(t, r.Sources)
}
