package review

import (
	"math"
	"time"
)

const (
	minEaseFactor = 1.3
	maxEaseFactor = 2.5

	initialDifficulty = 2.0
	maxDifficulty     = 3.0

	day = 24 * time.Hour
)

// categoryAverageSeconds is the expected time spent per review, by category.
// Taking more than 1.5x the average signals struggling and shortens the next
// interval.
var categoryAverageSeconds = map[Category]float64{
	Lesson:     180,
	Quiz:       120,
	Calculator: 240,
	Scenario:   300,
}

// NewItem creates the scheduling state for a concept the first time it
// becomes reviewable. The item starts at ease 2.5, difficulty 2.0, a one-day
// interval, and is due one day from now.
func NewItem(conceptID string, category Category, chapterNumber int, importance Importance, now time.Time) Item {
	return Item{
		ConceptID:      conceptID,
		Category:       category,
		ChapterNumber:  chapterNumber,
		Importance:     importance,
		Difficulty:     initialDifficulty,
		EaseFactor:     maxEaseFactor,
		Interval:       1,
		Repetitions:    0,
		LastReviewDate: now,
		NextReviewDate: now.Add(day),
	}
}

// Schedule computes the item's next scheduling state from a review response.
// It is a pure function of (item, resp, now): the input item is not mutated
// and the same inputs always produce the same output.
//
// The interval follows SM-2: failure resets to one day, the first two
// successes pin 1 and 6 days, and later successes multiply the previous
// interval by the ease factor. After that, adjustments apply in order for
// the importance divisor, the confidence multiplier, and the time-spent
// penalty. The interval is rounded to whole days after each step and never
// drops below one day.
func Schedule(item Item, resp Response, now time.Time) Item {
	out := item

	out.EaseFactor = nextEaseFactor(item.EaseFactor, resp.Quality)

	var interval int
	if resp.Quality < 3 {
		// Failure: back to square one.
		out.Repetitions = 0
		interval = 1
	} else {
		out.Repetitions = item.Repetitions + 1
		switch out.Repetitions {
		case 1:
			interval = 1
		case 2:
			interval = 6
		default:
			interval = roundDays(float64(item.Interval) * out.EaseFactor)
		}
	}

	interval = roundDays(float64(interval) / item.Importance.Divisor())

	if resp.Confidence <= 2 {
		interval = roundDays(float64(interval) * 0.7)
	} else if resp.Confidence >= 4 {
		interval = roundDays(float64(interval) * 1.2)
	}

	if avg, ok := categoryAverageSeconds[item.Category]; ok && resp.TimeSpent > avg*1.5 {
		interval = roundDays(float64(interval) * 0.8)
	}

	out.Difficulty = nextDifficulty(item.Difficulty, resp.Quality)
	out.Interval = interval
	out.LastReviewDate = now
	out.NextReviewDate = now.Add(time.Duration(interval) * day)

	return out
}

// nextEaseFactor applies the SM-2 ease update: a quality-scaled increase on
// success, a flat 0.2 decrease on failure, clamped to [1.3, 2.5].
func nextEaseFactor(ef float64, quality int) float64 {
	if quality >= 3 {
		miss := float64(5 - quality)
		ef += 0.1 - miss*(0.08+miss*0.02)
	} else {
		ef -= 0.2
	}
	return math.Min(maxEaseFactor, math.Max(minEaseFactor, ef))
}

// nextDifficulty nudges the stored difficulty: strong recall eases it,
// weak recall hardens it, quality 3 leaves it alone.
func nextDifficulty(d float64, quality int) float64 {
	switch {
	case quality >= 4:
		return math.Max(0, d-0.1)
	case quality <= 2:
		return math.Min(maxDifficulty, d+0.2)
	default:
		return d
	}
}

// roundDays rounds to a whole day count, floored at one day.
func roundDays(x float64) int {
	days := int(math.Round(x))
	if days < 1 {
		return 1
	}
	return days
}
