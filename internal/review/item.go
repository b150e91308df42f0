package review

import (
	"encoding"
	"encoding/json"
	"fmt"
	"time"
)

// Category classifies the kind of learning activity a concept belongs to.
type Category int

const (
	Lesson Category = iota + 1
	Quiz
	Calculator
	Scenario
)

var (
	categoryNames  = [...]string{Lesson: "lesson", Quiz: "quiz", Calculator: "calculator", Scenario: "scenario"}
	categoryByName = map[string]Category{
		"lesson":     Lesson,
		"quiz":       Quiz,
		"calculator": Calculator,
		"scenario":   Scenario,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Category(0)
	_ json.Marshaler           = Category(0)
	_ json.Unmarshaler         = (*Category)(nil)
	_ encoding.TextMarshaler   = Category(0)
	_ encoding.TextUnmarshaler = (*Category)(nil)
)

// IsValid reports whether c is a known category.
func (c Category) IsValid() bool {
	return c >= Lesson && c <= Scenario
}

// String returns the category name ("lesson", "quiz", "calculator",
// "scenario"). For invalid values it returns "Category(n)".
func (c Category) String() string {
	if c.IsValid() {
		return categoryNames[c]
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCategory, int(c))
	}
	return []byte(categoryNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	v, ok := categoryByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, text)
	}
	*c = v
	return nil
}

// MarshalJSON implements json.Marshaler. Category serializes as a JSON string.
func (c Category) MarshalJSON() ([]byte, error) {
	text, err := c.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (c *Category) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidCategory, data)
	}
	return c.UnmarshalText([]byte(s))
}

// Importance weights how often a concept should resurface. Higher importance
// shortens review intervals; the ordering Low < Medium < High < Critical is
// relied on by the prioritizer's tie-breaking.
type Importance int

const (
	Low Importance = iota + 1
	Medium
	High
	Critical
)

var (
	importanceNames  = [...]string{Low: "low", Medium: "medium", High: "high", Critical: "critical"}
	importanceByName = map[string]Importance{
		"low":      Low,
		"medium":   Medium,
		"high":     High,
		"critical": Critical,
	}
)

// Compile-time interface checks.
var (
	_ fmt.Stringer             = Importance(0)
	_ json.Marshaler           = Importance(0)
	_ json.Unmarshaler         = (*Importance)(nil)
	_ encoding.TextMarshaler   = Importance(0)
	_ encoding.TextUnmarshaler = (*Importance)(nil)
)

// IsValid reports whether i is a known importance level.
func (i Importance) IsValid() bool {
	return i >= Low && i <= Critical
}

// String returns the importance name ("low", "medium", "high", "critical").
// For invalid values it returns "Importance(n)".
func (i Importance) String() string {
	if i.IsValid() {
		return importanceNames[i]
	}
	return fmt.Sprintf("Importance(%d)", int(i))
}

// Divisor returns the interval divisor for this importance level. Critical
// concepts review twice as often as low ones.
func (i Importance) Divisor() float64 {
	switch i {
	case Medium:
		return 1.2
	case High:
		return 1.5
	case Critical:
		return 2.0
	default:
		return 1.0
	}
}

// MarshalText implements encoding.TextMarshaler.
func (i Importance) MarshalText() ([]byte, error) {
	if !i.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidImportance, int(i))
	}
	return []byte(importanceNames[i]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Importance) UnmarshalText(text []byte) error {
	v, ok := importanceByName[string(text)]
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidImportance, text)
	}
	*i = v
	return nil
}

// MarshalJSON implements json.Marshaler. Importance serializes as a JSON string.
func (i Importance) MarshalJSON() ([]byte, error) {
	text, err := i.MarshalText()
	if err != nil {
		return nil, err
	}
	return json.Marshal(string(text))
}

// UnmarshalJSON implements json.Unmarshaler. Expects a JSON string.
func (i *Importance) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidImportance, data)
	}
	return i.UnmarshalText([]byte(s))
}

// Item holds the scheduling state of one learnable concept. Items are
// created once per concept and updated on every review; they are never
// deleted for the life of the course.
type Item struct {
	ConceptID      string     `json:"concept_id"`
	Category       Category   `json:"category"`
	ChapterNumber  int        `json:"chapter_number"`
	Importance     Importance `json:"importance"`
	Difficulty     float64    `json:"difficulty"`  // 0 (easy) to 3 (hard)
	EaseFactor     float64    `json:"ease_factor"` // 1.3 to 2.5
	Interval       int        `json:"interval"`    // days
	Repetitions    int        `json:"repetitions"`
	LastReviewDate time.Time  `json:"last_review_date"`
	NextReviewDate time.Time  `json:"next_review_date"`
}

// Response captures a single review outcome. It is ephemeral input to
// Schedule and is never stored. Ranges are not validated here; callers
// validate at the UI boundary.
type Response struct {
	Quality    int     `json:"quality"`    // 0 (blackout) to 5 (perfect recall)
	TimeSpent  float64 `json:"time_spent"` // seconds
	Confidence int     `json:"confidence"` // 1 to 5 self-assessment
}
