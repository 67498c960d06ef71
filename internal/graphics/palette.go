package graphics

import (
	"fmt"
	"image/color"
	"io"

	"gones/internal/ppu"
)

// DefaultPalette returns the 64-color NES palette the PPU ships with, as an
// image/color.Palette, for hosts that want to hand it to a dithering or
// quantizing step (e.g. a future indexed-color output path) instead of
// working with packed uint32s directly.
func DefaultPalette() color.Palette {
	return paletteFromTable(ppu.Palette())
}

// LoadPalFile parses a raw .pal file — 64 entries of 3 bytes each (R, G, B),
// the de facto format most NES palette editors emit — and returns it as an
// image/color.Palette without installing it.
func LoadPalFile(r io.Reader) (color.Palette, error) {
	table, err := readPalTable(r)
	if err != nil {
		return nil, err
	}
	return paletteFromTable(table), nil
}

// ApplyPalFile parses a .pal file and installs it as the PPU's active color
// lookup table via ppu.SetPalette, replacing the built-in NESdev palette.
func ApplyPalFile(r io.Reader) error {
	table, err := readPalTable(r)
	if err != nil {
		return err
	}
	ppu.SetPalette(table)
	return nil
}

func readPalTable(r io.Reader) ([64]uint32, error) {
	var table [64]uint32

	raw := make([]byte, 64*3)
	if _, err := io.ReadFull(r, raw); err != nil {
		return table, fmt.Errorf("reading .pal file: %w", err)
	}

	for i := 0; i < 64; i++ {
		red, green, blue := raw[i*3], raw[i*3+1], raw[i*3+2]
		table[i] = uint32(red)<<16 | uint32(green)<<8 | uint32(blue)
	}
	return table, nil
}

func paletteFromTable(table [64]uint32) color.Palette {
	pal := make(color.Palette, len(table))
	for i, packed := range table {
		pal[i] = color.RGBA{
			R: uint8(packed >> 16),
			G: uint8(packed >> 8),
			B: uint8(packed),
			A: 0xFF,
		}
	}
	return pal
}
