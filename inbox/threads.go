package inbox

import (
	"sort"

	"unimail/models"
)

// Assembly is the grouped view of one fetched page: every conversation keyed
// by thread id, plus the newest message of each conversation in the order
// list views render them (most recent activity first).
type Assembly struct {
	Threads         map[string][]models.Message
	LatestPerThread []models.Message
}

// Assemble groups messages by thread id, sorts each conversation ascending
// by receive time, and derives the latest-per-thread summary list sorted
// descending. It never mutates its input: callers get fresh slices. Equal
// timestamps keep their fetch order (stable sort), which also makes the
// function idempotent - assembling an already latest-per-thread list again
// yields the same list, since each entry is then a singleton thread.
func Assemble(messages []models.Message) Assembly {
	threads := make(map[string][]models.Message, len(messages))
	var order []string

	for _, msg := range messages {
		key := msg.ThreadID
		if key == "" {
			// providers without a conversation concept yield one-message threads
			key = msg.ID
		}
		if _, ok := threads[key]; !ok {
			order = append(order, key)
		}
		threads[key] = append(threads[key], msg)
	}

	for _, key := range order {
		sortByDate(threads[key], false)
	}

	latest := make([]models.Message, 0, len(order))
	for _, key := range order {
		group := threads[key]
		latest = append(latest, group[len(group)-1])
	}
	sortByDate(latest, true)

	return Assembly{Threads: threads, LatestPerThread: latest}
}

// AssembleFlat is the drafts-folder variant: no conversation concept, no
// grouping, just the messages sorted newest first.
func AssembleFlat(messages []models.Message) Assembly {
	flat := make([]models.Message, len(messages))
	copy(flat, messages)
	sortByDate(flat, true)
	return Assembly{Threads: map[string][]models.Message{}, LatestPerThread: flat}
}

func sortByDate(msgs []models.Message, descending bool) {
	sort.SliceStable(msgs, func(i, j int) bool {
		ti, iok := parseWhen(msgs[i].DateReceived)
		tj, jok := parseWhen(msgs[j].DateReceived)
		if !iok || !jok {
			// undated messages keep their fetch position
			return false
		}
		if descending {
			return tj.Before(ti)
		}
		return ti.Before(tj)
	})
}
