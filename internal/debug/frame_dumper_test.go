package debug

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpPNGWritesDecodableImage(t *testing.T) {
	dir := t.TempDir()
	dumper := NewFrameDumper(dir)

	var frame [256 * 240]uint32
	frame[0] = 0xFF0000 // top-left red

	require.NoError(t, dumper.DumpPNG(frame, "frame.png"))

	file, err := os.Open(filepath.Join(dir, "frame.png"))
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	require.Equal(t, 256, img.Bounds().Dx())
	require.Equal(t, 240, img.Bounds().Dy())

	r, g, b, _ := img.At(0, 0).RGBA()
	require.Equal(t, uint32(0xFFFF), r)
	require.Equal(t, uint32(0), g)
	require.Equal(t, uint32(0), b)
}

func TestDumpPNGScalesUp(t *testing.T) {
	dir := t.TempDir()
	dumper := NewFrameDumper(dir)
	dumper.SetScale(2)

	var frame [256 * 240]uint32
	require.NoError(t, dumper.DumpPNG(frame, "frame_2x.png"))

	file, err := os.Open(filepath.Join(dir, "frame_2x.png"))
	require.NoError(t, err)
	defer file.Close()

	img, err := png.Decode(file)
	require.NoError(t, err)
	require.Equal(t, 512, img.Bounds().Dx())
	require.Equal(t, 480, img.Bounds().Dy())
}
