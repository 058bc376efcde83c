package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Doctor is a clinic specialist as listed on the doctors page.
type Doctor struct {
	UUID            string     `json:"uuid"`
	Slug            string     `json:"slug"`
	FullName        string     `json:"full_name"`
	Specialization  string     `json:"specialization"`
	ExperienceYears Experience `json:"experience_years"`
	ImageURL        string     `json:"image_url,omitempty"`
}

// Key implements pager.Keyed. Doctors are identified by UUID.
func (d Doctor) Key() string { return d.UUID }

// Experience returns the human-readable work experience.
func (d Doctor) Experience() string {
	return FormatExperience(string(d.ExperienceYears))
}

// Experience is the experience_years field. The API sends either a number
// of years or an already worded string ("10 лет").
type Experience string

// UnmarshalJSON accepts both JSON numbers and strings.
func (e *Experience) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*e = Experience(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("experience_years: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*e = Experience(strconv.FormatInt(i, 10))
		return nil
	}
	*e = Experience(n.String())
	return nil
}

// MedicalTest is a test included in a check-up program.
type MedicalTest struct {
	UUID            string `json:"uuid"`
	Name            string `json:"name"`
	MiniDescription string `json:"mini_description"`
}

// Checkup is a check-up program.
type Checkup struct {
	UUID            string        `json:"uuid"`
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	MiniDescription string        `json:"mini_description"`
	CardDescription string        `json:"card_description"`
	Duration        string        `json:"duration"`
	Price           float64       `json:"price"`
	Icon            string        `json:"icon"`
	MedicalTests    []MedicalTest `json:"medical_tests"`
}

// Key identifies a check-up by UUID.
func (c Checkup) Key() string { return c.UUID }

// Summary is the card footer: number of tests and duration.
func (c Checkup) Summary() string {
	return fmt.Sprintf("%d исследований • %s", len(c.MedicalTests), c.Duration)
}

// Analysis is a laboratory analysis (medical test) with its own page.
type Analysis struct {
	UUID            string  `json:"uuid"`
	Slug            string  `json:"slug"`
	Name            string  `json:"name"`
	MiniDescription string  `json:"mini_description"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price,omitempty"`
}

// Key identifies an analysis by UUID.
func (a Analysis) Key() string { return a.UUID }
