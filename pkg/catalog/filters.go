package catalog

import (
	"github.com/google/go-querystring/query"

	"github.com/globalmed/clinic-catalog/pkg/pager"
)

// LocaleParam is the filter key carrying the request locale. It is sent as
// Accept-Language, not as a query parameter.
const LocaleParam = "lang"

// DoctorFilters are the search controls of the doctors page.
type DoctorFilters struct {
	Search         string `url:"search,omitempty"`
	Specialization string `url:"specialization,omitempty"`
	Locale         string `url:"lang,omitempty"`
	PerPage        int    `url:"per_page,omitempty"`
}

// Filters encodes f for a pager.Controller. Zero fields are omitted so
// that an empty search equals no filters at all.
func (f DoctorFilters) Filters() pager.Filters {
	values, err := query.Values(f)
	if err != nil || len(values) == 0 {
		return nil
	}
	return pager.FiltersFromValues(values)
}
