package savestate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"gones/internal/cartridge"
	"gones/internal/scheduler"
)

// buildNROM assembles a minimal one-bank NROM image with program placed at
// $8000 and the reset vector pointing there.
func buildNROM(program []uint8) *cartridge.Cartridge {
	header := make([]uint8, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = 1 // 1x 16KB PRG bank
	header[5] = 1 // 1x 8KB CHR bank

	prg := make([]uint8, 16384)
	copy(prg, program)
	prg[0x3FFC] = 0x00 // $FFFC in the bank mirrored at $C000
	prg[0x3FFD] = 0x80

	data := append(append([]uint8(nil), header...), prg...)
	data = append(data, make([]uint8, 8192)...)

	cart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	if err != nil {
		panic(err)
	}
	return cart
}

func newRunningScheduler(t *testing.T, program []uint8, steps int) *scheduler.Scheduler {
	t.Helper()
	s := scheduler.New(scheduler.RegionNTSC)
	s.LoadCartridge(buildNROM(program))
	for i := 0; i < steps; i++ {
		s.StepCycle()
	}
	return s
}

func TestSaveLoadRoundTripsCPUState(t *testing.T) {
	// LDA #$42; STA $00; loop: JMP loop
	program := []uint8{0xA9, 0x42, 0x85, 0x00, 0x4C, 0x04, 0x80}
	s := newRunningScheduler(t, program, 10)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s, false))

	fresh := scheduler.New(scheduler.RegionNTSC)
	fresh.LoadCartridge(buildNROM(program))

	require.NoError(t, Load(&buf, fresh))
	require.Equal(t, s.CPU.Snapshot(), fresh.CPU.Snapshot())
	require.Equal(t, s.FrameCount(), fresh.FrameCount())
}

func TestSaveLoadRoundTripsWithCompression(t *testing.T) {
	program := []uint8{0xEA} // NOP
	s := newRunningScheduler(t, program, 500)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s, true))

	fresh := scheduler.New(scheduler.RegionNTSC)
	fresh.LoadCartridge(buildNROM(program))
	require.NoError(t, Load(&buf, fresh))

	require.Equal(t, s.CPU.Snapshot(), fresh.CPU.Snapshot())
	require.Equal(t, s.PPU.Snapshot(), fresh.PPU.Snapshot())
	require.Equal(t, s.APU.Snapshot(), fresh.APU.Snapshot())
}

func TestLoadRejectsBadMagic(t *testing.T) {
	s := scheduler.New(scheduler.RegionNTSC)
	s.LoadCartridge(buildNROM([]uint8{0xEA}))

	buf := bytes.NewBufferString("XXXXnonsense")
	require.ErrorIs(t, Load(buf, s), ErrBadMagic)
}

func TestLoadRejectsRomMismatch(t *testing.T) {
	program := []uint8{0xEA}
	s := newRunningScheduler(t, program, 5)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s, false))

	other := scheduler.New(scheduler.RegionNTSC)
	other.LoadCartridge(buildNROM([]uint8{0xA9, 0x00})) // different program, different hash

	require.ErrorIs(t, Load(&buf, other), ErrRomMismatch)
}

func TestLoadRejectsChecksumMismatch(t *testing.T) {
	s := newRunningScheduler(t, []uint8{0xEA}, 5)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s, false))

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF // flip a byte inside the body

	fresh := scheduler.New(scheduler.RegionNTSC)
	fresh.LoadCartridge(buildNROM([]uint8{0xEA}))
	require.ErrorIs(t, Load(bytes.NewReader(corrupted), fresh), ErrChecksumMismatch)
}

func TestSaveLoadRoundTripsMapperAndCHRRAM(t *testing.T) {
	// MMC1 (mapper 1): write $80 to $8000 to reset the shift register, then
	// load CHR bank select bits through the serial port.
	header := make([]uint8, 16)
	copy(header[0:4], "NES\x1A")
	header[4] = 2   // 2x 16KB PRG banks
	header[5] = 0   // CHR-RAM
	header[6] = 0x10 // mapper low nibble = 1 (MMC1)

	prg := make([]uint8, 32768)
	prg[0x7FFC], prg[0x7FFD] = 0x00, 0x80
	data := append(append([]uint8(nil), header...), prg...)

	cart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	require.True(t, cart.Rom().HasCHRRAM)

	s := scheduler.New(scheduler.RegionNTSC)
	s.LoadCartridge(cart)
	s.Cart.WriteCHR(0x0000, 0xAB)

	var buf bytes.Buffer
	require.NoError(t, Save(&buf, s, false))

	fresh := scheduler.New(scheduler.RegionNTSC)
	freshCart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	require.NoError(t, err)
	fresh.LoadCartridge(freshCart)

	require.NoError(t, Load(&buf, fresh))
	require.Equal(t, uint8(0xAB), fresh.Cart.ReadCHR(0x0000))
}
