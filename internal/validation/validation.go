package validation

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// ErrLocationEmpty is returned when a location is empty or whitespace-only after trim.
var ErrLocationEmpty = errors.New("location is required")

// ErrLocationTooShort is returned when a location is below the minimum length.
var ErrLocationTooShort = errors.New("location too short")

// ErrLocationTooLong is returned when a location exceeds the maximum length.
var ErrLocationTooLong = errors.New("location too long")

// ErrLocationInvalidChars is returned when a location contains disallowed characters.
var ErrLocationInvalidChars = errors.New("location contains invalid characters")

// ErrStartTimeInvalid is returned when a start time matches no accepted layout.
var ErrStartTimeInvalid = errors.New("start time must be RFC 3339 or YYYY-MM-DDTHH:MM")

// Validator checks trip query input. Lengths are counted in runes.
type Validator struct {
	v    *validator.Validate
	tags string
}

// New creates a Validator enforcing minLen..maxLen on locations. Zero disables a bound.
func New(minLen, maxLen int) *Validator {
	v := validator.New()
	if err := v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		for _, r := range fl.Field().String() {
			if !isAllowedLocationRune(r) {
				return false
			}
		}
		return true
	}); err != nil {
		panic(err)
	}

	tags := []string{}
	if minLen > 0 {
		tags = append(tags, fmt.Sprintf("min=%d", minLen))
	}
	if maxLen > 0 {
		tags = append(tags, fmt.Sprintf("max=%d", maxLen))
	}
	tags = append(tags, "location")
	return &Validator{v: v, tags: strings.Join(tags, ",")}
}

// Location trims input and validates it as an origin or destination: an
// address, a place name or a "lat,lng" pair. Returns the trimmed string or an
// error suitable for 400 INVALID_LOCATION responses.
func (v *Validator) Location(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrLocationEmpty
	}

	err := v.v.Var(s, v.tags)
	if err == nil {
		return s, nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		switch verrs[0].Tag() {
		case "min":
			return "", ErrLocationTooShort
		case "max":
			return "", ErrLocationTooLong
		}
	}
	return "", ErrLocationInvalidChars
}

// isAllowedLocationRune allows letters (Unicode), digits, space and the
// punctuation found in street addresses and coordinates.
func isAllowedLocationRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-', '.', '\'', '/', '#', '&', '(', ')':
		return true
	}
	return false
}

// Layouts without a zone are read in the configured trip location;
// datetime-local form input arrives as "2006-01-02T15:04".
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
}

// StartTime parses a trip start time. Empty input means now. RFC 3339 input
// keeps its own offset; zoneless input is interpreted in loc.
func StartTime(input string, loc *time.Location, now time.Time) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return now.In(loc), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrStartTimeInvalid
}
