package review

import (
	"encoding"
	"fmt"
	"sort"
	"time"
)

// DefaultMaxDueItems caps how many due concepts a review session surfaces.
const DefaultMaxDueItems = 10

// Priority grades a session recommendation.
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

var (
	priorityNames  = [...]string{PriorityLow: "low", PriorityMedium: "medium", PriorityHigh: "high"}
	priorityByName = map[string]Priority{
		"low":    PriorityLow,
		"medium": PriorityMedium,
		"high":   PriorityHigh,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Priority(0)
	_ encoding.TextMarshaler   = Priority(0)
	_ encoding.TextUnmarshaler = (*Priority)(nil)
)

// IsValid reports whether p is a known priority.
func (p Priority) IsValid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

// String returns the priority name ("low", "medium", "high"). For invalid
// values it returns "Priority(n)".
func (p Priority) String() string {
	if p.IsValid() {
		return priorityNames[p]
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPriority, int(p))
	}
	return []byte(priorityNames[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	v, ok := priorityByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, text)
	}
	*p = v
	return nil
}

// RetentionStats summarizes how well the learner is holding the material.
// Mastered and struggling are not mutually exclusive by construction, though
// in practice they rarely overlap.
type RetentionStats struct {
	Total          int     `json:"total"`
	Mastered       int     `json:"mastered"`   // repetitions >= 5 and ease > 2.0
	Struggling     int     `json:"struggling"` // difficulty > 2.5 or ease < 1.8
	DueToday       int     `json:"due_today"`
	MasteryRate    float64 `json:"mastery_rate"`    // percent of total
	StrugglingRate float64 `json:"struggling_rate"` // percent of total
}

// Recommendation is the prioritizer's session advice.
type Recommendation struct {
	Recommendation string   `json:"recommendation"`
	Priority       Priority `json:"priority"`
	Concepts       []string `json:"concepts"`
}

// DueForReview returns the due items ranked most-overdue first, with
// importance and then difficulty (both descending) as tie-breaks, truncated
// to maxItems. A maxItems <= 0 uses DefaultMaxDueItems. The input slice is
// not modified.
func DueForReview(items []Item, now time.Time, maxItems int) []Item {
	if maxItems <= 0 {
		maxItems = DefaultMaxDueItems
	}
	due := dueItems(items, now)
	if len(due) > maxItems {
		due = due[:maxItems]
	}
	return due
}

// dueItems filters and ranks every due item without truncation.
func dueItems(items []Item, now time.Time) []Item {
	due := make([]Item, 0, len(items))
	for _, item := range items {
		if !item.NextReviewDate.After(now) {
			due = append(due, item)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		oi := now.Sub(due[i].NextReviewDate)
		oj := now.Sub(due[j].NextReviewDate)
		if oi != oj {
			return oi > oj
		}
		if due[i].Importance != due[j].Importance {
			return due[i].Importance > due[j].Importance
		}
		return due[i].Difficulty > due[j].Difficulty
	})
	return due
}

// Retention computes retention statistics over the item collection. Rates
// are percentages of the total, zero when the collection is empty.
func Retention(items []Item, now time.Time) RetentionStats {
	stats := RetentionStats{Total: len(items)}
	for _, item := range items {
		if item.Repetitions >= 5 && item.EaseFactor > 2.0 {
			stats.Mastered++
		}
		if item.Difficulty > 2.5 || item.EaseFactor < 1.8 {
			stats.Struggling++
		}
		if !item.NextReviewDate.After(now) {
			stats.DueToday++
		}
	}
	if stats.Total > 0 {
		stats.MasteryRate = float64(stats.Mastered) / float64(stats.Total) * 100
		stats.StrugglingRate = float64(stats.Struggling) / float64(stats.Total) * 100
	}
	return stats
}

// Recommend produces session advice from the current item collection. The
// policy is evaluated in order: nothing due, too much struggling material,
// a large due backlog, then the quick-review default.
func Recommend(items []Item, now time.Time) Recommendation {
	due := dueItems(items, now)
	if len(due) == 0 {
		return Recommendation{
			Recommendation: "You're all caught up! No concepts are due for review.",
			Priority:       PriorityLow,
			Concepts:       []string{},
		}
	}

	stats := Retention(items, now)
	if stats.StrugglingRate > 30 {
		return Recommendation{
			Recommendation: "Several concepts need work. Master your struggling concepts first before moving on.",
			Priority:       PriorityHigh,
			Concepts:       conceptIDs(due, 3),
		}
	}

	if len(due) > DefaultMaxDueItems {
		return Recommendation{
			Recommendation: fmt.Sprintf("You have %d concepts due for review. Start with the most overdue ones.", len(due)),
			Priority:       PriorityMedium,
			Concepts:       conceptIDs(due, 5),
		}
	}

	return Recommendation{
		Recommendation: "A quick review session will keep these concepts fresh.",
		Priority:       PriorityLow,
		Concepts:       conceptIDs(due, DefaultMaxDueItems),
	}
}

func conceptIDs(items []Item, max int) []string {
	if len(items) > max {
		items = items[:max]
	}
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ConceptID
	}
	return ids
}
