// Package scheduler implements the master-clock loop that couples the CPU,
// PPU, APU and cartridge mapper into lockstep. It owns DMA cycle stealing
// (OAM DMA and DMC DMA) and the NTSC/PAL clock dividers; internal/memory only
// decodes addresses, it does not advance time.
package scheduler

import (
	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/ppu"
)

// Region selects the CPU:PPU clock ratio and frame geometry.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// palPPUTicksPerCPUTick is the 5-slot PAL divider table: 16 PPU ticks per 5
// CPU ticks (the documented 1:3.2 ratio), front-loaded as four 3-tick slots
// and one 4-tick slot.
var palPPUTicksPerCPUTick = [5]int{3, 3, 3, 3, 4}

// oamDMAState tracks an in-progress OAM DMA transfer one CPU cycle at a
// time: an alignment cycle (1 or 2, depending on parity), then 256
// alternating read/write cycle pairs.
type oamDMAState struct {
	active    bool
	page      uint8
	alignLeft int
	byteIndex int
	haveValue bool
	value     uint8
}

// Scheduler is the master clock: it owns every component for one emulation
// session and is the only thing that advances time.
type Scheduler struct {
	CPU    *cpu.CPU
	PPU    *ppu.PPU
	APU    *apu.APU
	Memory *memory.Memory
	Input  *input.InputState
	Cart   *cartridge.Cartridge

	region  Region
	palSlot int

	cpuCycles  uint64
	frameCount uint64

	oamDMA         oamDMAState
	dmcStallCycles int
}

// New creates a scheduler with no cartridge loaded. Call LoadCartridge
// before running.
func New(region Region) *Scheduler {
	s := &Scheduler{
		PPU:   ppu.New(),
		APU:   apu.New(),
		Input: input.NewInputState(),

		region: region,
	}

	s.Memory = memory.New(s.PPU, s.APU, nil)
	s.Memory.SetInputSystem(s.Input)
	s.Memory.SetDMACallback(s.beginOAMDMA)

	s.CPU = cpu.New(s.Memory)
	s.APU.SetMemoryReader(s.Memory)
	s.APU.SetStallCallback(func(cycles int) { s.dmcStallCycles += cycles })

	s.wirePPUCallbacks()

	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()

	return s
}

// wirePPUCallbacks installs the NMI and frame-complete hooks. The PPU only
// calls nmiCallback at genuine edge-worthy instants (VBlank start, or the
// $2000-write-during-VBlank quirk), so each call is forced through a
// false->true transition to guarantee the CPU's edge detector sees it,
// even if the previous pulse hasn't been observed by CPU.Cycle yet.
func (s *Scheduler) wirePPUCallbacks() {
	s.PPU.SetNMICallback(func() {
		s.CPU.SetNMI(false)
		s.CPU.SetNMI(true)
	})
	s.PPU.SetFrameCompleteCallback(func() {
		s.frameCount++
	})
}

// LoadCartridge swaps in a freshly loaded cartridge and resets the system,
// mirroring the teacher's bus.LoadCartridge but against the rebuilt
// cartridge/memory APIs (live mirroring, A12 forwarding, extended Mapper).
func (s *Scheduler) LoadCartridge(cart *cartridge.Cartridge) {
	s.Cart = cart

	s.Memory = memory.New(s.PPU, s.APU, cart)
	s.Memory.SetInputSystem(s.Input)
	s.Memory.SetDMACallback(s.beginOAMDMA)

	s.CPU.SetBus(s.Memory)
	s.APU.SetMemoryReader(s.Memory)
	s.CPU.SetInstructionBoundaryCallback(cart.NotifyInstructionBoundary)

	ppuMem := memory.NewPPUMemory(cart)
	s.PPU.SetMemory(ppuMem)

	s.Reset()
}

// Reset performs a system-wide reset, equivalent to pressing the NES reset
// button: CPU, PPU, APU and timing state all return to power-up values, the
// cartridge's PRG-RAM and mapper registers are untouched.
func (s *Scheduler) Reset() {
	s.CPU.Reset()
	s.PPU.Reset()
	s.APU.Reset()
	s.Input.Reset()
	s.PPU.SetFrameCount(0)

	s.cpuCycles = 0
	s.frameCount = 0
	s.palSlot = 0
	s.oamDMA = oamDMAState{}
	s.dmcStallCycles = 0
}

// ppuTicksThisCycle returns how many PPU dots to run after this CPU cycle.
func (s *Scheduler) ppuTicksThisCycle() int {
	if s.region == RegionNTSC {
		return 3
	}
	n := palPPUTicksPerCPUTick[s.palSlot]
	s.palSlot = (s.palSlot + 1) % len(palPPUTicksPerCPUTick)
	return n
}

// StepCycle advances the system by exactly one CPU cycle (spec.md's
// step_cycle contract): at most one CPU bus operation, the matching number
// of PPU dots, and one APU tick.
func (s *Scheduler) StepCycle() {
	irq := false
	if s.APU != nil {
		irq = s.APU.GetFrameIRQ() || s.APU.GetDMCIRQ()
	}
	if s.Cart != nil {
		irq = irq || s.Cart.IRQPending()
	}
	s.CPU.SetIRQ(irq)

	switch {
	case s.oamDMA.active:
		s.stepOAMDMACycle()
	case s.dmcStallCycles > 0:
		s.dmcStallCycles--
	default:
		s.CPU.Cycle()
	}

	if s.Cart != nil {
		s.Cart.CPUTick()
	}

	ticks := s.ppuTicksThisCycle()
	for i := 0; i < ticks; i++ {
		s.PPU.Step()
	}

	s.APU.Step()

	s.cpuCycles++
}

// beginOAMDMA starts a 513/514-cycle OAM DMA transfer, triggered by a write
// to $4014. The alignment cycle count depends on whether the transfer
// starts on an even or odd CPU cycle.
func (s *Scheduler) beginOAMDMA(page uint8) {
	if s.oamDMA.active {
		return
	}
	align := 1
	if s.cpuCycles%2 == 1 {
		align = 2
	}
	s.oamDMA = oamDMAState{active: true, page: page, alignLeft: align}
}

// stepOAMDMACycle runs one cycle of an in-progress OAM DMA transfer: the
// CPU is halted throughout, so no CPU.Cycle is issued.
func (s *Scheduler) stepOAMDMACycle() {
	d := &s.oamDMA
	if d.alignLeft > 0 {
		d.alignLeft--
		return
	}
	if !d.haveValue {
		addr := uint16(d.page)<<8 | uint16(d.byteIndex)
		d.value = s.Memory.Read(addr)
		d.haveValue = true
		return
	}
	s.PPU.WriteOAM(uint8(d.byteIndex), d.value)
	d.haveValue = false
	d.byteIndex++
	if d.byteIndex >= 256 {
		d.active = false
	}
}

// RunFrame runs until the PPU completes a full frame (spec.md's run_frame
// contract), returning the frame buffer and every audio sample generated
// during the frame.
func (s *Scheduler) RunFrame() ([256 * 240]uint32, []float32) {
	target := s.frameCount + 1
	for s.frameCount < target {
		s.StepCycle()
	}
	return s.PPU.GetFrameBuffer(), s.APU.GetSamples()
}

// CycleCount returns the total number of CPU cycles executed since reset.
func (s *Scheduler) CycleCount() uint64 { return s.cpuCycles }

// FrameCount returns the total number of frames completed since reset.
func (s *Scheduler) FrameCount() uint64 { return s.frameCount }

// Region reports the configured region.
func (s *Scheduler) Region() Region { return s.region }
