// Package fingerprint turns a secret into a small symmetric identicon so a
// user can recognize a mistyped secret at a glance. The output is not
// security material and is unrelated to the derived passwords.
package fingerprint

import (
	"encoding/hex"
	"image/color"
	"strings"

	"github.com/atinyakov/esgp/internal/derive"
	"github.com/atinyakov/esgp/internal/models"
)

// Size is the number of cells per side of the grid.
const Size = 5

// Rounds is the number of hex-chained hashes applied to the secret before
// the pattern digest is taken.
const Rounds = 4

// Palette holds the foreground colors a fingerprint may use.
var Palette = []color.RGBA{
	{R: 0x2e, G: 0x86, B: 0xde, A: 0xff},
	{R: 0xd9, G: 0x48, B: 0x3b, A: 0xff},
	{R: 0x3b, G: 0xa5, B: 0x5c, A: 0xff},
	{R: 0x8e, G: 0x44, B: 0xad, A: 0xff},
	{R: 0xe6, G: 0x7e, B: 0x22, A: 0xff},
	{R: 0x16, G: 0xa0, B: 0x85, A: 0xff},
	{R: 0x34, G: 0x49, B: 0x5e, A: 0xff},
	{R: 0xf1, G: 0xc4, B: 0x0f, A: 0xff},
}

// Background is the color of unset cells.
var Background = color.RGBA{R: 0xf0, G: 0xf0, B: 0xf0, A: 0xff}

// Bitmap is a Size×Size grid mirrored about its vertical axis.
type Bitmap struct {
	// Cells is indexed [row][column]; true cells use Foreground.
	Cells      [Size][Size]bool
	Foreground color.RGBA
	Background color.RGBA
}

// Generate computes the fingerprint of secret. It reports false for an
// empty secret, for which nothing should be shown.
func Generate(secret derive.Secret, family models.HashFamily) (Bitmap, bool) {
	if secret.Empty() {
		return Bitmap{}, false
	}

	seed := []byte(string(secret))
	for i := 0; i < Rounds; i++ {
		h := family.New()
		h.Write(seed)
		seed = []byte(hex.EncodeToString(h.Sum(nil)))
	}
	h := family.New()
	h.Write(seed)
	return pattern(h.Sum(nil)), true
}

// pattern fills the left half column by column from the digest bits that
// follow the palette byte, then mirrors it.
func pattern(digest []byte) Bitmap {
	b := Bitmap{
		Foreground: Palette[int(digest[0])%len(Palette)],
		Background: Background,
	}
	bits := digest[1:]
	half := (Size + 1) / 2
	for col := 0; col < half; col++ {
		for row := 0; row < Size; row++ {
			k := col*Size + row
			on := bits[k/8]>>(k%8)&1 == 1
			b.Cells[row][col] = on
			b.Cells[row][Size-1-col] = on
		}
	}
	return b
}

// Diff returns the number of cells that differ between b and o.
func (b Bitmap) Diff(o Bitmap) int {
	n := 0
	for r := range b.Cells {
		for c := range b.Cells[r] {
			if b.Cells[r][c] != o.Cells[r][c] {
				n++
			}
		}
	}
	return n
}

// String renders the grid as rows of '#' and '.'.
func (b Bitmap) String() string {
	var sb strings.Builder
	for r, row := range b.Cells {
		if r > 0 {
			sb.WriteByte('\n')
		}
		for _, on := range row {
			if on {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
	}
	return sb.String()
}
