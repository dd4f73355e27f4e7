package engine

import (
	"encoding/hex"
	"fmt"
	"image"
	"image/color"
	"strings"
)

// LayoutImage renders a character layout into a bitmap. Every character must
// appear in the legend, which maps it to a "rrggbb" color key.
func LayoutImage(layout []string, legend map[string]string) (*image.NRGBA, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("layout is empty")
	}

	width := len(layout[0])
	colors := make(map[rune]color.NRGBA, len(legend))
	for char, key := range legend {
		if len([]rune(char)) != 1 {
			return nil, fmt.Errorf("legend key %q must be a single character", char)
		}
		raw, err := hex.DecodeString(strings.ToLower(key))
		if err != nil || len(raw) != 3 {
			return nil, fmt.Errorf("legend[%q]: %q is not a 6 digit hex color", char, key)
		}
		colors[[]rune(char)[0]] = color.NRGBA{R: raw[0], G: raw[1], B: raw[2], A: 0xff}
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, len(layout)))
	for y, row := range layout {
		if len(row) != width {
			return nil, fmt.Errorf("layout row %d has %d characters, expected %d", y+1, len(row), width)
		}
		for x, char := range row {
			col, ok := colors[char]
			if !ok {
				return nil, fmt.Errorf("invalid character '%c' at row %d, col %d", char, y+1, x+1)
			}
			img.SetNRGBA(x, y, col)
		}
	}
	return img, nil
}
