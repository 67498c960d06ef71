// Package nes implements the public façade described in spec.md §6: the
// narrow surface (load_rom, run_frame, step_cycle, set_controller,
// save_state/load_state, battery_ram, region, frame_number) that host code
// drives the emulation core through, without touching internal/scheduler,
// internal/cpu, internal/ppu, internal/apu or internal/cartridge directly.
package nes

import (
	"bytes"
	"io"

	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/input"
	"gones/internal/memory"
	"gones/internal/savestate"
	"gones/internal/scheduler"
)

// Region mirrors cartridge.Region for the public API, so callers never need
// to import internal/cartridge.
type Region int

const (
	RegionNTSC Region = iota
	RegionPAL
)

// FrameOutput is what run_frame hands back: one fully rendered frame as
// packed RGB bytes, plus every audio sample generated while producing it.
type FrameOutput struct {
	Video [256 * 240 * 3]uint8
	Audio []float32
}

// Core is the emulation session: one loaded ROM bound to its own CPU, PPU,
// APU and scheduler. The zero value is not usable; construct with LoadROM.
type Core struct {
	sched *scheduler.Scheduler
	cart  *cartridge.Cartridge
}

// LoadROM parses an iNES/NES 2.0 image and returns a ready-to-run Core. The
// scheduler's region follows the ROM's NES 2.0 region byte when present
// (RegionPAL only; Dendy/Multi both run the NTSC divider, matching
// DESIGN.md's decision to treat them as NTSC-timed until a dedicated
// Dendy divider is requested).
func LoadROM(data []byte) (*Core, error) {
	cart, err := cartridge.LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	region := scheduler.RegionNTSC
	if cart.Rom().Region == cartridge.RegionPAL {
		region = scheduler.RegionPAL
	}

	sched := scheduler.New(region)
	sched.LoadCartridge(cart)

	return &Core{sched: sched, cart: cart}, nil
}

// Reset performs a system reset, equivalent to pressing the NES's reset
// button.
func (c *Core) Reset() { c.sched.Reset() }

// RunFrame runs the system until the PPU completes one frame, per
// spec.md's run_frame contract.
func (c *Core) RunFrame() FrameOutput {
	buf, samples := c.sched.RunFrame()
	return FrameOutput{Video: toRGBBytes(buf), Audio: samples}
}

// StepCycle advances exactly one CPU cycle, for debugger single-stepping.
func (c *Core) StepCycle() { c.sched.StepCycle() }

// SetController latches one player's 8-bit button state: bit 0=A, 1=B,
// 2=Select, 3=Start, 4=Up, 5=Down, 6=Left, 7=Right (spec.md §6).
func (c *Core) SetController(player int, buttons uint8) {
	bits := [8]bool{}
	for i := range bits {
		bits[i] = buttons&(1<<uint(i)) != 0
	}
	switch player {
	case 1:
		c.sched.Input.SetButtons1(bits)
	case 2:
		c.sched.Input.SetButtons2(bits)
	}
}

// SetControllerButtons latches one player's buttons from an 8-element
// array in NES shift-register order (A, B, Select, Start, Up, Down, Left,
// Right) — the host-friendly counterpart to SetController's bitmask.
func (c *Core) SetControllerButtons(player int, buttons [8]bool) {
	var mask uint8
	for i, pressed := range buttons {
		if pressed {
			mask |= 1 << uint(i)
		}
	}
	c.SetController(player, mask)
}

// ControllerState reports the currently latched button array for a player,
// for hosts that cache state to detect changes before re-sending it.
func (c *Core) ControllerState(player int) [8]bool {
	var ctrl *input.Controller
	switch player {
	case 1:
		ctrl = c.sched.Input.Controller1
	case 2:
		ctrl = c.sched.Input.Controller2
	default:
		return [8]bool{}
	}
	return [8]bool{
		ctrl.IsPressed(input.ButtonA),
		ctrl.IsPressed(input.ButtonB),
		ctrl.IsPressed(input.ButtonSelect),
		ctrl.IsPressed(input.ButtonStart),
		ctrl.IsPressed(input.ButtonUp),
		ctrl.IsPressed(input.ButtonDown),
		ctrl.IsPressed(input.ButtonLeft),
		ctrl.IsPressed(input.ButtonRight),
	}
}

// SaveState serializes the full machine state to a byte slice, compressed.
func (c *Core) SaveState() ([]byte, error) {
	var buf bytes.Buffer
	if err := savestate.Save(&buf, c.sched, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// LoadState restores machine state previously produced by SaveState. A
// header, checksum, ROM-hash or truncation error leaves the Core's state
// untouched; a block that fails to decode leaves the blocks restored before
// it in place.
func (c *Core) LoadState(data []byte) error {
	return savestate.Load(bytes.NewReader(data), c.sched)
}

// BatteryRAM exposes the cartridge's PRG-RAM for the host to persist when
// Rom.Battery is set; returns nil for cartridges with no battery-backed RAM.
func (c *Core) BatteryRAM() []uint8 { return c.cart.BatteryRAM() }

// LoadBatteryRAM restores previously persisted PRG-RAM content.
func (c *Core) LoadBatteryRAM(data []uint8) { c.cart.LoadBatteryRAM(data) }

// HasBattery reports whether this ROM wants its PRG-RAM persisted.
func (c *Core) HasBattery() bool { return c.cart.HasBattery() }

// Region reports the cartridge's configured TV system.
func (c *Core) Region() Region {
	if c.sched.Region() == scheduler.RegionPAL {
		return RegionPAL
	}
	return RegionNTSC
}

// FrameNumber reports the number of frames completed since the last reset.
func (c *Core) FrameNumber() uint64 { return c.sched.FrameCount() }

// CycleCount reports the number of CPU cycles executed since the last
// reset, for host-side performance instrumentation.
func (c *Core) CycleCount() uint64 { return c.sched.CycleCount() }

// SetInstructionTracer installs (or clears, with nil) a debugger-hook
// instruction tracer — spec.md §4.2's "a debugger hook can detect this
// condition" allowance — without exposing the underlying *cpu.CPU.
func (c *Core) SetInstructionTracer(t cpu.Tracer) {
	c.sched.CPU.SetTracer(t)
}

// SetMemoryWatchpoints installs (or clears, with nil) a debugger-hook
// watchpoint set on the CPU-address-space bus, without exposing the
// underlying *memory.Memory.
func (c *Core) SetMemoryWatchpoints(w *memory.Watchpoints) {
	c.sched.Memory.SetWatchpoints(w)
}

// toRGBBytes expands the PPU's packed 0xRRGGBB frame buffer into the
// 256*240*3 byte layout spec.md's FrameOutput.video describes.
func toRGBBytes(buf [256 * 240]uint32) [256 * 240 * 3]uint8 {
	var out [256 * 240 * 3]uint8
	for i, px := range buf {
		out[i*3+0] = uint8(px >> 16)
		out[i*3+1] = uint8(px >> 8)
		out[i*3+2] = uint8(px)
	}
	return out
}

// LoadROMFromReader is a convenience wrapper for hosts reading a ROM image
// from disk or an embedded filesystem.
func LoadROMFromReader(r io.Reader) (*Core, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LoadROM(data)
}
