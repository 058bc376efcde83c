package catalog

import (
	"strconv"
	"strings"
	"unicode"
)

// DefaultCheckupIcon is shown for check-ups without a dedicated icon.
const DefaultCheckupIcon = "/icons/medical-check.svg"

// FormatExperience renders years of experience in Russian.
//
// Strings that already contain "лет" or "год" are returned unchanged.
// Otherwise the digits are read as a year count: 1 is "год", 2 to 4
// "года", anything else "лет". Input without digits is returned as is.
func FormatExperience(experience string) string {
	if strings.Contains(experience, "лет") || strings.Contains(experience, "год") {
		return experience
	}

	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, experience)

	years, err := strconv.Atoi(digits)
	if err != nil {
		return experience
	}

	switch {
	case years == 1:
		return strconv.Itoa(years) + " год"
	case years > 1 && years < 5:
		return strconv.Itoa(years) + " года"
	default:
		return strconv.Itoa(years) + " лет"
	}
}

// IconForSlug returns the icon registered for a check-up slug, or
// DefaultCheckupIcon.
func IconForSlug(icons map[string]string, slug string) string {
	if icon, ok := icons[slug]; ok && icon != "" {
		return icon
	}
	return DefaultCheckupIcon
}
