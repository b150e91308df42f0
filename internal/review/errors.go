package review

import "errors"

var (
	// ErrInvalidCategory is returned when text cannot be parsed as a Category.
	ErrInvalidCategory = errors.New("review: invalid category")

	// ErrInvalidImportance is returned when text cannot be parsed as an Importance.
	ErrInvalidImportance = errors.New("review: invalid importance")

	// ErrInvalidPriority is returned when text cannot be parsed as a Priority.
	ErrInvalidPriority = errors.New("review: invalid priority")
)
