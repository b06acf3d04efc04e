package tasklist

import (
	"testing"

	"taskdesk/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt(t *testing.T) {
	cases := []struct {
		name, in, want string
	}{
		{"plain", "just text", "just text"},
		{"blank", "  \n ", ""},
		{"emphasis", "write the **spec** _today_", "write the spec today"},
		{"paragraphs", "first line\nsecond line\n\nnext para", "first line second line next para"},
		{"heading and list", "# Plan\n\n- one\n- two", "Plan one two"},
		{"link", "see [docs](https://example.com)", "see docs"},
		{"code", "run `make`", "run make"},
		{"emoji", "ship it :rocket:", "ship it 🚀"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Excerpt(tc.in))
		})
	}
}

func TestRowsUseExcerpt(t *testing.T) {
	rows := RowsFor([]model.Task{{ID: 1, Title: "a", Description: sp("**bold** move")}, {ID: 2, Title: "b", Description: sp("***")}})
	assert.Equal(t, "bold move", rows[0].Description)
	assert.Equal(t, "N/A", rows[1].Description)
}
