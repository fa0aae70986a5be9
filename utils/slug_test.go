package utils

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Game Night", "game-night"},
		{"  Summer BBQ 2026!  ", "summer-bbq-2026"},
		{"Déjà Vu", "d-j-vu"},
		{"---", ""},
		{"already-slugged", "already-slugged"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
