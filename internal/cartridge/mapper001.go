package cartridge

// mapper001 implements MMC1/SxROM: a 5-bit serial shift register loads one
// of four control registers on its fifth write. PRG/CHR bank sizes and
// fixed-bank placement depend on the control register's mode bits.
type mapper001 struct {
	rom *Rom

	shift     uint8
	shiftCnt  int
	control   uint8 // mirroring(1:0), PRG mode(3:2), CHR mode(4)
	chrBank0  uint8
	chrBank1  uint8
	prgBank   uint8

	prgRAM       [0x2000]uint8
	prgRAMEnable bool

	// The consecutive-write rule: two writes to $8000-$FFFF issued by the
	// same CPU instruction (an RMW like INC) must be treated as one write,
	// because real hardware only clocks the shift register once per
	// instruction. writtenThisInstruction is set by the first register
	// write of an instruction so a repeat within it can be ignored;
	// NotifyInstructionBoundary (called from the scheduler) clears it.
	writtenThisInstruction bool
}

func newMapper001(rom *Rom) *mapper001 {
	m := &mapper001{rom: rom, control: 0x0C, prgRAMEnable: true}
	return m
}

// NotifyInstructionBoundary is called by the scheduler at the start of each
// CPU instruction so the shift register can accept a new write again.
func (m *mapper001) NotifyInstructionBoundary() { m.writtenThisInstruction = false }

func (m *mapper001) prgBankCount() int { return len(m.rom.PRGROM) / 0x4000 }
func (m *mapper001) chrBankCount4k() int {
	if len(m.rom.CHRROM) == 0 {
		return 2
	}
	return len(m.rom.CHRROM) / 0x1000
}

func (m *mapper001) ReadPRG(address uint16) uint8 {
	if address >= 0x6000 && address < 0x8000 {
		if !m.prgRAMEnable {
			return 0
		}
		return m.prgRAM[address-0x6000]
	}
	if address < 0x8000 {
		return 0
	}
	bank := int(m.prgBank & 0x0F)
	last := m.prgBankCount() - 1
	var offset int
	switch (m.control >> 2) & 0x03 {
	case 0, 1:
		// 32 KiB mode: ignore low bit of bank, switch both windows together.
		base := (bank &^ 1) * 0x4000
		offset = base + int(address-0x8000)
	case 2:
		// fix first bank at $8000, switch $C000
		if address < 0xC000 {
			offset = int(address - 0x8000)
		} else {
			offset = bank*0x4000 + int(address-0xC000)
		}
	default: // 3
		// switch $8000, fix last bank at $C000
		if address < 0xC000 {
			offset = bank*0x4000 + int(address-0x8000)
		} else {
			offset = last*0x4000 + int(address-0xC000)
		}
	}
	if offset >= 0 && offset < len(m.rom.PRGROM) {
		return m.rom.PRGROM[offset]
	}
	return 0
}

func (m *mapper001) WritePRG(address uint16, value uint8) {
	if address >= 0x6000 && address < 0x8000 {
		if m.prgRAMEnable {
			m.prgRAM[address-0x6000] = value
		}
		return
	}
	if address < 0x8000 {
		return
	}
	if m.writtenThisInstruction {
		return
	}
	m.writtenThisInstruction = true

	if value&0x80 != 0 {
		m.shift = 0
		m.shiftCnt = 0
		m.control |= 0x0C
		return
	}
	m.shift = (m.shift >> 1) | ((value & 1) << 4)
	m.shiftCnt++
	if m.shiftCnt < 5 {
		return
	}
	result := m.shift
	m.shift, m.shiftCnt = 0, 0
	switch {
	case address < 0xA000:
		m.control = result
	case address < 0xC000:
		m.chrBank0 = result
	case address < 0xE000:
		m.chrBank1 = result
	default:
		m.prgBank = result & 0x0F
		m.prgRAMEnable = result&0x10 == 0
	}
}

func (m *mapper001) chrOffset(address uint16) int {
	if m.control&0x10 == 0 {
		// 8 KiB CHR mode: chrBank0's low bits (ignoring bit 0) select the
		// 8 KiB window.
		bank := int(m.chrBank0 &^ 1)
		return bank*0x1000 + int(address)
	}
	if address < 0x1000 {
		return int(m.chrBank0)*0x1000 + int(address)
	}
	return int(m.chrBank1)*0x1000 + int(address-0x1000)
}

func (m *mapper001) ReadCHR(address uint16) uint8 {
	off := m.chrOffset(address)
	if off >= 0 && off < len(m.rom.CHRROM) {
		return m.rom.CHRROM[off]
	}
	return 0
}

func (m *mapper001) WriteCHR(address uint16, value uint8) {
	if !m.rom.HasCHRRAM {
		return
	}
	off := m.chrOffset(address)
	if off >= 0 && off < len(m.rom.CHRROM) {
		m.rom.CHRROM[off] = value
	}
}

func (m *mapper001) Mirroring() MirrorMode {
	switch m.control & 0x03 {
	case 0:
		return MirrorSingleScreenA
	case 1:
		return MirrorSingleScreenB
	case 2:
		return MirrorVertical
	default:
		return MirrorHorizontal
	}
}

func (m *mapper001) CPUTick()          {}
func (m *mapper001) PPUA12(level bool) {}
func (m *mapper001) IRQPending() bool  { return false }
func (m *mapper001) IRQAck()           {}

func (m *mapper001) BatteryRAM() []uint8      { return append([]uint8(nil), m.prgRAM[:]...) }
func (m *mapper001) LoadBatteryRAM(d []uint8) { copy(m.prgRAM[:], d) }

type mapper001State struct {
	Shift, ShiftCnt              uint8
	Control, ChrBank0, ChrBank1  uint8
	PrgBank                      uint8
	PRGRAMEnable                 bool
	PRGRAM                       [0x2000]uint8
}

func (m *mapper001) SaveState() MapperState {
	return mapper001State{
		Shift: m.shift, ShiftCnt: uint8(m.shiftCnt),
		Control: m.control, ChrBank0: m.chrBank0, ChrBank1: m.chrBank1,
		PrgBank: m.prgBank, PRGRAMEnable: m.prgRAMEnable, PRGRAM: m.prgRAM,
	}
}

func (m *mapper001) LoadState(s MapperState) {
	st, ok := s.(mapper001State)
	if !ok {
		return
	}
	m.shift, m.shiftCnt = st.Shift, int(st.ShiftCnt)
	m.control, m.chrBank0, m.chrBank1 = st.Control, st.ChrBank0, st.ChrBank1
	m.prgBank, m.prgRAMEnable, m.prgRAM = st.PrgBank, st.PRGRAMEnable, st.PRGRAM
}
