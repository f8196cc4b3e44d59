package feed

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// DeriveVariant maps a listing id onto [0, paletteSize) without any stored mapping.
//
// The last two characters of id are read as a base-16 number. Ids shorter than
// two characters, or whose suffix is not hex, fall back to the xxhash64 of the
// whole id. A paletteSize below 1 yields 0.
func DeriveVariant(id string, paletteSize int) int {
	if paletteSize < 1 {
		return 0
	}
	if len(id) >= 2 {
		if v, err := strconv.ParseUint(id[len(id)-2:], 16, 8); err == nil {
			return int(v % uint64(paletteSize))
		}
	}
	return int(xxhash.Sum64String(id) % uint64(paletteSize))
}

// CardStyle is one family of card typography and decoration.
type CardStyle struct {
	Name          string
	FeatureMarker string
}

// Palettes. Entries are css modifiers defined in static/style.css.
var (
	Colors  = []string{"paper", "rose", "indigo", "green", "amber"}
	Fonts   = []string{"poppins", "playfair", "space-mono", "lora", "archivo"}
	Borders = []string{"rail", "inset", "dashed", "ring", "grain", "outline", "glass"}

	CardStyles = []CardStyle{
		{Name: "bold", FeatureMarker: "🔹"},
		{Name: "shout", FeatureMarker: "▸"},
		{Name: "italic", FeatureMarker: "•"},
		{Name: "wavy", FeatureMarker: "→"},
		{Name: "mono", FeatureMarker: "✔️"},
	}
)

// Style is the full visual variant of one listing card.
type Style struct {
	Color  string
	Font   string
	Border string
	Card   CardStyle
}

// StyleFor derives every palette dimension of a listing from its id alone.
func StyleFor(id string) Style {
	return Style{
		Color:  Colors[DeriveVariant(id, len(Colors))],
		Font:   Fonts[DeriveVariant(id, len(Fonts))],
		Border: Borders[DeriveVariant(id, len(Borders))],
		Card:   CardStyles[DeriveVariant(id, len(CardStyles))],
	}
}
