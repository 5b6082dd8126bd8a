package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunReportOK(t *testing.T) {
	report := &RunReport{
		Results: []AssetResult{
			{Name: "a", Status: StatusSucceeded},
			{Name: "b", Status: StatusSucceeded},
		},
	}
	assert.True(t, report.OK())
	assert.Empty(t, report.Failed())

	report.Results = append(report.Results, AssetResult{Name: "c", Status: StatusSkipped, Detail: "dependency failed: b"})
	assert.False(t, report.OK())

	failed := report.Failed()
	assert.Len(t, failed, 1)
	assert.Equal(t, "c", failed[0].Name)
}
