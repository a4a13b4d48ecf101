package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tenderscope/tenderscope/internal/model"
)

func TestAll_OrderedAndUnique(t *testing.T) {
	tasks := All()
	require.NotEmpty(t, tasks)

	seenIDs := map[int]bool{}
	seenCodes := map[string]bool{}
	prev := 0
	for _, task := range tasks {
		assert.Greater(t, task.ID, prev, "catalog must be ordered by id")
		prev = task.ID

		assert.False(t, seenIDs[task.ID], "duplicate id %d", task.ID)
		assert.False(t, seenCodes[task.Code], "duplicate code %s", task.Code)
		seenIDs[task.ID] = true
		seenCodes[task.Code] = true

		assert.NotEmpty(t, task.Code)
		assert.NotEmpty(t, task.Name)
		assert.GreaterOrEqual(t, task.Severity.Rank(), 0, "task %s has unknown severity %q", task.Code, task.Severity)
		assert.NotNil(t, task.Subtasks)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	first := All()
	first[0].Name = "mutated"
	first[0].ID = -1

	again := All()
	assert.NotEqual(t, "mutated", again[0].Name)
	assert.Equal(t, 1, again[0].ID)
}

func TestByID(t *testing.T) {
	task, ok := ByID(7)
	require.True(t, ok)
	assert.Equal(t, "H-07", task.Code)

	_, ok = ByID(999)
	assert.False(t, ok)
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, model.SeverityCritical.AtLeast(model.SeverityHigh))
	assert.True(t, model.SeverityHigh.AtLeast(model.SeverityHigh))
	assert.False(t, model.SeverityLow.AtLeast(model.SeverityMedium))
	assert.Equal(t, -1, model.Severity("unknown").Rank())
}
