package cpu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// testBus is a flat 64 KiB memory used to drive the CPU in isolation,
// matching the teacher's style of hand-rolled test doubles for bus
// interfaces (see the original mapper000_test.go/cartridge_test.go).
type testBus struct {
	mem  [65536]uint8
	log  []busOp
	trap bool
}

type busOp struct {
	write   bool
	address uint16
	value   uint8
}

func (b *testBus) Read(addr uint16) uint8 {
	v := b.mem[addr]
	b.log = append(b.log, busOp{false, addr, v})
	return v
}

func (b *testBus) Write(addr uint16, v uint8) {
	b.mem[addr] = v
	b.log = append(b.log, busOp{true, addr, v})
}

func newTestCPU(program []uint8, at uint16) (*CPU, *testBus) {
	bus := &testBus{}
	copy(bus.mem[at:], program)
	bus.mem[0xFFFC] = uint8(at)
	bus.mem[0xFFFD] = uint8(at >> 8)
	c := New(bus)
	c.Reset()
	return c, bus
}

func runCycles(c *CPU, n int) {
	for i := 0; i < n; i++ {
		c.Cycle()
	}
}

func TestResetVector(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xEA}, 0x8000)
	require.Equal(t, uint16(0x8000), c.PC)
	require.Equal(t, uint8(0xFD), c.SP)
	require.Equal(t, flagU|flagI, c.P)
}

func TestLDAImmediateTakesTwoCycles(t *testing.T) {
	c, bus := newTestCPU([]uint8{0xA9, 0x42}, 0x8000)
	bus.log = nil
	runCycles(c, 2)
	require.Equal(t, uint8(0x42), c.A)
	require.Len(t, bus.log, 2)
	require.False(t, c.getFlag(flagZ))
	require.False(t, c.getFlag(flagN))
}

func TestLDAZeroPageTakesThreeCycles(t *testing.T) {
	c, bus := newTestCPU([]uint8{0xA5, 0x10}, 0x8000)
	bus.mem[0x0010] = 0x99
	bus.log = nil
	runCycles(c, 3)
	require.Equal(t, uint8(0x99), c.A)
	require.Len(t, bus.log, 3)
	require.True(t, c.getFlag(flagN))
}

func TestAbsoluteXPageCrossAddsCycle(t *testing.T) {
	// LDA $20FF,X with X=1 crosses into $2100.
	c, bus := newTestCPU([]uint8{0xBD, 0xFF, 0x20}, 0x8000)
	c.X = 1
	bus.mem[0x2100] = 0x55
	bus.log = nil
	runCycles(c, 5)
	require.Equal(t, uint8(0x55), c.A)
	require.Len(t, bus.log, 5)
}

func TestAbsoluteXNoPageCrossIsFourCycles(t *testing.T) {
	c, bus := newTestCPU([]uint8{0xBD, 0x00, 0x20}, 0x8000)
	c.X = 1
	bus.mem[0x2001] = 0x55
	bus.log = nil
	runCycles(c, 4)
	require.Equal(t, uint8(0x55), c.A)
	require.Len(t, bus.log, 4)
}

func TestINCAbsoluteXAlwaysSevenCycles(t *testing.T) {
	// Read-modify-write absolute,X takes the dummy read unconditionally,
	// even when no page boundary is crossed.
	c, bus := newTestCPU([]uint8{0xFE, 0x00, 0x20}, 0x8000)
	c.X = 1
	bus.mem[0x2001] = 0x10
	bus.log = nil
	runCycles(c, 7)
	require.Equal(t, uint8(0x11), bus.mem[0x2001])
	require.Len(t, bus.log, 7)
	// old value written back unchanged before the new value.
	require.Equal(t, busOp{true, 0x2001, 0x10}, bus.log[5])
	require.Equal(t, busOp{true, 0x2001, 0x11}, bus.log[6])
}

func TestJMPIndirectPageWrapBug(t *testing.T) {
	c, bus := newTestCPU([]uint8{0x6C, 0xFF, 0x20}, 0x8000)
	bus.mem[0x20FF] = 0x34
	bus.mem[0x2000] = 0x12 // NOT 0x2100; the 6502 bug wraps within the page
	bus.mem[0x2100] = 0x99
	runCycles(c, 5)
	require.Equal(t, uint16(0x1234), c.PC)
}

func TestBranchCycleCounts(t *testing.T) {
	// BEQ not taken: 2 cycles.
	c, bus := newTestCPU([]uint8{0xF0, 0x10}, 0x8000)
	c.setFlag(flagZ, false)
	bus.log = nil
	runCycles(c, 2)
	require.Len(t, bus.log, 2)
	require.Equal(t, uint16(0x8002), c.PC)

	// BEQ taken, same page: 3 cycles.
	c2, bus2 := newTestCPU([]uint8{0xF0, 0x10}, 0x8010)
	c2.setFlag(flagZ, true)
	bus2.log = nil
	runCycles(c2, 3)
	require.Len(t, bus2.log, 3)
	require.Equal(t, uint16(0x8010+2+0x10), c2.PC)

	// BEQ taken, crosses page: 4 cycles.
	c3, bus3 := newTestCPU([]uint8{0xF0, 0x7F}, 0x80F0)
	c3.setFlag(flagZ, true)
	bus3.log = nil
	runCycles(c3, 4)
	require.Len(t, bus3.log, 4)
}

func TestJSRRTSRoundTrip(t *testing.T) {
	prog := []uint8{0x20, 0x05, 0x80, 0xEA, 0xEA, 0x60}
	c, _ := newTestCPU(prog, 0x8000)
	runCycles(c, 6) // JSR
	require.Equal(t, uint16(0x8005), c.PC)
	require.Equal(t, uint8(0xFD-2), c.SP)
	runCycles(c, 6) // RTS
	require.Equal(t, uint16(0x8003), c.PC)
	require.Equal(t, uint8(0xFD), c.SP)
}

func TestBRKPushesBFlagSetIRQDoesNot(t *testing.T) {
	c, bus := newTestCPU([]uint8{0x00}, 0x8000)
	bus.mem[0xFFFE] = 0x00
	bus.mem[0xFFFF] = 0x90
	runCycles(c, 7)
	pushedP := bus.mem[stackBase+uint16(c.SP)+1]
	require.NotZero(t, pushedP&flagB)
	require.NotZero(t, pushedP&flagU)
}

func TestNMIDuringBRKIsHijacked(t *testing.T) {
	c, bus := newTestCPU([]uint8{0x00}, 0x8000)
	bus.mem[0xFFFE] = 0x00
	bus.mem[0xFFFF] = 0x80 // IRQ/BRK vector
	bus.mem[0xFFFA] = 0x00
	bus.mem[0xFFFB] = 0x90 // NMI vector
	c.Cycle()              // fetch BRK opcode, starts interrupt seq
	c.Cycle()              // fetch padding byte
	c.SetNMI(true)         // NMI edge arrives mid-sequence
	c.Cycle()              // push PCH
	c.Cycle()              // push PCL
	c.Cycle()              // push P; hijack check happens here
	c.Cycle()              // fetch vector low
	c.Cycle()              // fetch vector high
	require.Equal(t, uint16(0x9000), c.PC)
}

func TestUndocumentedLAX(t *testing.T) {
	c, bus := newTestCPU([]uint8{0xA7, 0x10}, 0x8000)
	bus.mem[0x0010] = 0x77
	runCycles(c, 3)
	require.Equal(t, uint8(0x77), c.A)
	require.Equal(t, uint8(0x77), c.X)
}

func TestIRQMaskedByI(t *testing.T) {
	c, _ := newTestCPU([]uint8{0xEA, 0xEA}, 0x8000)
	c.setFlag(flagI, true)
	c.SetIRQ(true)
	runCycles(c, 2)
	require.Equal(t, uint16(0x8001), c.PC) // second NOP, no interrupt taken
}

func TestHaltingOpcodeFreezesCPU(t *testing.T) {
	c, _ := newTestCPU([]uint8{0x02}, 0x8000)
	c.Cycle()
	require.True(t, c.Halted())
	pc := c.PC
	c.Cycle()
	require.Equal(t, pc, c.PC)
}
