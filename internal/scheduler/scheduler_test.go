package scheduler

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"gones/internal/cartridge"
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

func TestStepCyclePPURunsThreeTimesPerCPUCycleNTSC(t *testing.T) {
	cart := buildNROM([]uint8{0xEA}) // NOP
	s := New(RegionNTSC)
	s.LoadCartridge(cart)

	before := s.PPU.GetCycleCount()
	s.StepCycle()
	after := s.PPU.GetCycleCount()
	require.Equal(t, uint64(3), after-before)
	require.Equal(t, uint64(1), s.CycleCount())
}

func TestPALDividerAverages32OverFiveCPUCycles(t *testing.T) {
	cart := buildNROM([]uint8{0xEA})
	s := New(RegionPAL)
	s.LoadCartridge(cart)

	before := s.PPU.GetCycleCount()
	for i := 0; i < 5; i++ {
		s.StepCycle()
	}
	after := s.PPU.GetCycleCount()
	require.Equal(t, uint64(16), after-before)
}

func TestRunFrameAdvancesExactlyOneFrame(t *testing.T) {
	cart := buildNROM([]uint8{0x4C, 0x00, 0x80}) // JMP $8000 (infinite loop)
	s := New(RegionNTSC)
	s.LoadCartridge(cart)

	frameBefore := s.FrameCount()
	_, _ = s.RunFrame()
	require.Equal(t, frameBefore+1, s.FrameCount())
}

func TestOAMDMAStallsCPUFor513Cycles(t *testing.T) {
	// Program: LDA #$00; STA $4014 (triggers OAM DMA at page 0)
	cart := buildNROM([]uint8{0xA9, 0x00, 0x8D, 0x14, 0x40, 0xEA})
	s := New(RegionNTSC)
	s.LoadCartridge(cart)

	// Run the two instructions that trigger DMA: LDA #$00 (2 cyc), STA $4014 (4 cyc).
	for i := 0; i < 6; i++ {
		s.StepCycle()
	}
	require.True(t, s.oamDMA.active, "OAM DMA should be in progress right after the $4014 write")
	expected := uint64(s.oamDMA.alignLeft + 256*2)

	cyclesBefore := s.CycleCount()
	for s.oamDMA.active {
		s.StepCycle()
	}
	cyclesDuring := s.CycleCount() - cyclesBefore

	require.Equal(t, expected, cyclesDuring)
	require.Contains(t, []int{513, 514}, int(expected))
}

func TestNMIFiresAtVBlankWhenEnabled(t *testing.T) {
	cart := buildNROM([]uint8{0x4C, 0x00, 0x80}) // JMP $8000
	s := New(RegionNTSC)
	s.LoadCartridge(cart)
	s.PPU.WriteRegister(0x2000, 0x80) // enable NMI generation

	// Advance past scanline 241, cycle 1 (VBlank start, NTSC): that dot is
	// 82,523 PPU dots in, and 28,000 CPU cycles (84,000 dots) stop inside
	// the first VBlank.
	for i := 0; i < 28000; i++ {
		s.StepCycle()
	}
	require.True(t, s.PPU.IsVBlank())
	// The NMI vector at $FFFA is $0000, so a taken NMI leaves PC in RAM.
	require.Less(t, s.CPU.PC, uint16(0x8000))
}

func TestResetReturnsToPowerUpTiming(t *testing.T) {
	cart := buildNROM([]uint8{0xEA})
	s := New(RegionNTSC)
	s.LoadCartridge(cart)

	s.StepCycle()
	s.StepCycle()
	require.Equal(t, uint64(2), s.CycleCount())

	s.Reset()
	require.Equal(t, uint64(0), s.CycleCount())
	require.Equal(t, uint64(0), s.FrameCount())
}
