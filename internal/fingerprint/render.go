package fingerprint

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"strings"
)

// DefaultCellPixels gives a 15×15 image, close to the 16px label the
// desktop client used.
const DefaultCellPixels = 3

// Image draws the bitmap with each cell as a cellPx×cellPx square.
func (b Bitmap) Image(cellPx int) *image.Paletted {
	if cellPx < 1 {
		cellPx = 1
	}
	side := Size * cellPx
	img := image.NewPaletted(image.Rect(0, 0, side, side), color.Palette{b.Background, b.Foreground})
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			if b.Cells[y/cellPx][x/cellPx] {
				img.SetColorIndex(x, y, 1)
			}
		}
	}
	return img
}

// WritePNG encodes the bitmap as PNG to w.
func (b Bitmap) WritePNG(w io.Writer, cellPx int) error {
	if err := png.Encode(w, b.Image(cellPx)); err != nil {
		return fmt.Errorf("encode fingerprint: %w", err)
	}
	return nil
}

// Terminal renders the bitmap with 24-bit ANSI background colors, two
// columns per cell so cells look square.
func (b Bitmap) Terminal() string {
	var sb strings.Builder
	for r, row := range b.Cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for _, on := range row {
			c := b.Background
			if on {
				c = b.Foreground
			}
			fmt.Fprintf(&sb, "\x1b[48;2;%d;%d;%dm  ", c.R, c.G, c.B)
		}
		sb.WriteString("\x1b[0m")
	}
	return sb.String()
}
