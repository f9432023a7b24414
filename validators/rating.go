// Package validators contains validators found throughout the application
// that have been abstracted away from the main code
package validators

import (
	"errors"
	"strconv"
	"strings"
)

const (
	MinRating = 0
	MaxRating = 100
)

var (
	ErrRatingEmpty      = errors.New("no rating provided")
	ErrRatingNotInteger = errors.New("rating must be an integer")
	ErrRatingRange      = errors.New("rating must be between 0 and 100")
)

// ParseRating turns the raw form value into a rating in [MinRating, MaxRating]
func ParseRating(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrRatingEmpty
	}

	r, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrRatingNotInteger
	}

	if r < MinRating || r > MaxRating {
		return 0, ErrRatingRange
	}

	return r, nil
}
