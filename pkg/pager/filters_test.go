package pager

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilters_Equal(t *testing.T) {
	tests := []struct {
		name string
		a, b Filters
		want bool
	}{
		{name: "both nil", want: true},
		{name: "nil and empty", a: nil, b: Filters{}, want: true},
		{name: "same values", a: Filters{"q": {"a"}, "lang": {"ru"}}, b: Filters{"lang": {"ru"}, "q": {"a"}}, want: true},
		{name: "different value", a: Filters{"q": {"a"}}, b: Filters{"q": {"b"}}, want: false},
		{name: "different key", a: Filters{"q": {"a"}}, b: Filters{"search": {"a"}}, want: false},
		{name: "value order matters", a: Filters{"q": {"a", "b"}}, b: Filters{"q": {"b", "a"}}, want: false},
		{name: "extra key", a: Filters{"q": {"a"}}, b: Filters{"q": {"a"}, "page": {"2"}}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestFilters_CloneIsDeep(t *testing.T) {
	orig := Filters{"q": {"a"}}
	clone := orig.Clone()
	clone["q"][0] = "changed"

	assert.Equal(t, "a", orig.Get("q"))
	assert.Nil(t, Filters(nil).Clone())
}

func TestFilters_With(t *testing.T) {
	base := Filters{"q": {"a"}}

	withLang := base.With("lang", "uz")
	assert.Equal(t, "uz", withLang.Get("lang"))
	assert.Equal(t, "", base.Get("lang"), "With does not mutate the receiver")

	cleared := withLang.With("q")
	assert.Equal(t, Filters{"lang": {"uz"}}, cleared)

	assert.Equal(t, Filters{"q": {"x"}}, Filters(nil).With("q", "x"))
}

func TestFilters_Encode(t *testing.T) {
	f := FiltersFromValues(url.Values{"search": {"ivanov"}, "lang": {"ru"}})
	assert.Equal(t, "lang=ru&search=ivanov", f.Encode())
	assert.Equal(t, url.Values{"search": {"ivanov"}, "lang": {"ru"}}, f.Values())
}
