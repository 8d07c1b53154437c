package model

// Palette is the fixed set of accent colors handed to experiments.
var Palette = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
}

// PaletteColor picks the color of an experiment from its id alone.
func PaletteColor(id int64) string {
	n := int64(len(Palette))
	i := id % n
	if i < 0 {
		i += n
	}
	return Palette[i]
}
