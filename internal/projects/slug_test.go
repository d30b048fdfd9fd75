package projects

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Modern Family Home", "modern-family-home"},
		{"Luxury Kitchen", "luxury-kitchen"},
		{"  Café & Bistro!  ", "caf-bistro"},
		{"UPPER CASE", "upper-case"},
		{"already-slugged", "already-slugged"},
		{"multiple   spaces", "multiple-spaces"},
		{"trailing symbols!!!", "trailing-symbols"},
		{"2024 Renovation", "2024-renovation"},
		{"!!!", ""},
		{"", ""},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "Slugify(%q)", tc.in)
	}
}
