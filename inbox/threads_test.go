package inbox

import (
	"testing"
	"time"

	"unimail/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msgAt(id, threadID string, t time.Time) models.Message {
	return models.Message{
		ID:           id,
		ThreadID:     threadID,
		DateReceived: t.Format(time.RFC3339),
	}
}

func TestAssembleGroupsAndSorts(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		msgAt("a2", "t1", base.Add(2*time.Hour)),
		msgAt("b1", "t2", base.Add(1*time.Hour)),
		msgAt("a1", "t1", base),
		msgAt("b2", "t2", base.Add(5*time.Hour)),
	}

	asm := Assemble(input)

	require.Len(t, asm.Threads, 2)
	assert.Equal(t, []string{"a1", "a2"}, ids(asm.Threads["t1"]), "threads sort ascending")
	assert.Equal(t, []string{"b1", "b2"}, ids(asm.Threads["t2"]))

	// latest-per-thread is newest conversation activity first
	assert.Equal(t, []string{"b2", "a2"}, ids(asm.LatestPerThread))
}

func TestAssembleEmptyThreadIDIsSingleton(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	asm := Assemble([]models.Message{msgAt("solo", "", base)})

	require.Len(t, asm.Threads, 1)
	assert.Equal(t, []string{"solo"}, ids(asm.Threads["solo"]))
}

func TestAssembleIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		msgAt("a1", "t1", base),
		msgAt("a2", "t1", base.Add(time.Hour)),
		msgAt("b1", "t2", base.Add(2*time.Hour)),
	}

	first := Assemble(input)
	second := Assemble(first.LatestPerThread)

	assert.Equal(t, ids(first.LatestPerThread), ids(second.LatestPerThread),
		"assembling an already latest-per-thread list changes nothing")
}

func TestAssembleDoesNotMutateInput(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		msgAt("late", "t1", base.Add(time.Hour)),
		msgAt("early", "t1", base),
	}

	Assemble(input)

	assert.Equal(t, "late", input[0].ID, "input order untouched")
	assert.Equal(t, "early", input[1].ID)
}

func TestAssembleStableTieBreak(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		msgAt("first", "t1", base),
		msgAt("second", "t1", base),
	}

	asm := Assemble(input)
	assert.Equal(t, []string{"first", "second"}, ids(asm.Threads["t1"]),
		"equal timestamps keep fetch order")
}

func TestAssembleUndatedKeepFetchPosition(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		{ID: "undated", ThreadID: "t1"},
		msgAt("dated", "t1", base),
	}

	asm := Assemble(input)
	assert.Equal(t, []string{"undated", "dated"}, ids(asm.Threads["t1"]))
}

func TestAssembleFlat(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	input := []models.Message{
		msgAt("old", "t1", base),
		msgAt("new", "t2", base.Add(time.Hour)),
	}

	asm := AssembleFlat(input)

	assert.Empty(t, asm.Threads, "flat assembly never groups")
	assert.Equal(t, []string{"new", "old"}, ids(asm.LatestPerThread), "newest first")
}

func ids(msgs []models.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
