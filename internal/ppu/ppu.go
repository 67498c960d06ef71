// Package ppu implements the Picture Processing Unit for the NES.
package ppu

import (
	"gones/internal/memory"
)

// PPU represents the NES Picture Processing Unit (2C02)
type PPU struct {
	// PPU Registers (CPU-visible)
	ppuCtrl   uint8 // $2000 - PPUCTRL
	ppuMask   uint8 // $2001 - PPUMASK
	ppuStatus uint8 // $2002 - PPUSTATUS
	oamAddr   uint8 // $2003 - OAMADDR
	oamData   uint8 // $2004 - OAMDATA (read/write buffer)
	ppuScroll uint8 // $2005 - PPUSCROLL (write buffer)
	ppuAddr   uint8 // $2006 - PPUADDR (write buffer)
	ppuData   uint8 // $2007 - PPUDATA (read/write buffer)

	// Internal PPU State (Loopy's v/t/x/w scroll model)
	v uint16 // Current VRAM address (15 bits)
	t uint16 // Temporary VRAM address (15 bits) - address latch
	x uint8  // Fine X scroll (3 bits)
	w bool   // Write latch (toggles between first/second write)

	// PPU Memory
	memory *memory.PPUMemory

	// Rendering State
	scanline    int // Current scanline (-1 to 260)
	cycle       int // Current cycle (0 to 340)
	frameCount  uint64
	oddFrame    bool
	suppressVBL bool  // Suppress VBL flag setting
	readBuffer  uint8 // PPU read buffer for $2007

	// Background rendering pipeline: a tile is fetched one byte at a time
	// over 8 dots (NT, AT, pattern low, pattern high) and latched here,
	// then merged into the 16-bit shift registers at the start of the
	// next tile fetch. The shift registers always hold the current tile
	// in their upper byte and the next tile in their lower byte.
	bgNextTileID uint8
	bgNextAttr   uint8
	bgNextPatLo  uint8
	bgNextPatHi  uint8

	bgShiftPatLo  uint16
	bgShiftPatHi  uint16
	bgShiftAttrLo uint16
	bgShiftAttrHi uint16

	// Sprite Data
	oam              [256]uint8 // Object Attribute Memory
	secondaryOAM     [32]uint8  // Secondary OAM for current scanline
	spriteCount      uint8      // Number of sprites on current scanline
	sprite0Hit       bool       // Sprite 0 hit flag
	spriteOverflow   bool       // Sprite overflow flag
	lastEvalScanline int        // Last scanline for which sprites were evaluated

	spriteIndexes [8]uint8 // Original sprite indices for secondary OAM entries

	// Sprite fetch pipeline: pattern bytes for the 8 secondary-OAM slots,
	// fetched during dots 257-320 (separate from the background's 1-256
	// and 321-336 windows) and held until rendered on the next scanline.
	// Horizontal flip is resolved at fetch time so pixel output never
	// has to branch on it.
	spritePatLo  [8]uint8
	spritePatHi  [8]uint8
	spriteX      [8]uint8
	spriteAttr   [8]uint8
	spriteIsZero [8]bool

	// Frame Buffer
	frameBuffer [256 * 240]uint32 // RGB frame buffer

	// Callbacks
	nmiCallback           func()
	frameCompleteCallback func()

	// Rendering Control
	backgroundEnabled bool
	spritesEnabled    bool
	renderingEnabled  bool

	// Timing
	cycleCount uint64
}

// New creates a new PPU instance
func New() *PPU {
	return &PPU{
		scanline:   -1, // Start at pre-render scanline
		cycle:      0,
		frameCount: 0,
		oddFrame:   false,

		// Initialize frame buffer to black
		frameBuffer: [256 * 240]uint32{},
	}
}

// Reset resets the PPU to initial state
func (p *PPU) Reset() {
	p.ppuCtrl = 0
	p.ppuMask = 0
	p.ppuStatus = 0xA0 // VBL and sprite-overflow flags set, sprite 0 hit clear
	p.oamAddr = 0
	p.oamData = 0
	p.ppuScroll = 0
	p.ppuAddr = 0
	p.ppuData = 0

	p.v = 0
	p.t = 0
	p.x = 0
	p.w = false

	p.scanline = -1
	p.cycle = 0
	p.frameCount = 0
	p.oddFrame = false
	p.suppressVBL = false
	p.readBuffer = 0

	p.bgNextTileID = 0
	p.bgNextAttr = 0
	p.bgNextPatLo = 0
	p.bgNextPatHi = 0
	p.bgShiftPatLo = 0
	p.bgShiftPatHi = 0
	p.bgShiftAttrLo = 0
	p.bgShiftAttrHi = 0

	p.spriteCount = 0
	p.sprite0Hit = false
	p.spriteOverflow = false

	for i := range p.spritePatLo {
		p.spritePatLo[i] = 0
		p.spritePatHi[i] = 0
		p.spriteX[i] = 0
		p.spriteAttr[i] = 0
		p.spriteIsZero[i] = false
	}

	p.backgroundEnabled = false
	p.spritesEnabled = false
	p.renderingEnabled = false

	p.cycleCount = 0
	p.lastEvalScanline = -999

	// Clear OAM
	for i := range p.oam {
		p.oam[i] = 0
	}

	// Clear frame buffer to black
	for i := range p.frameBuffer {
		p.frameBuffer[i] = 0x000000 // Black in RGB format
	}
}

// SetMemory sets the PPU memory interface
func (p *PPU) SetMemory(memory *memory.PPUMemory) {
	p.memory = memory
}

// SetNMICallback sets the NMI callback function
func (p *PPU) SetNMICallback(callback func()) {
	p.nmiCallback = callback
}

// SetFrameCompleteCallback sets the frame complete callback
func (p *PPU) SetFrameCompleteCallback(callback func()) {
	p.frameCompleteCallback = callback
}

// ReadRegister reads from a PPU register (CPU $2000-$2007)
func (p *PPU) ReadRegister(address uint16) uint8 {
	switch address {
	case 0x2000: // PPUCTRL - write only
		return p.ppuStatus & 0x1F // Return open bus with lower 5 bits
	case 0x2001: // PPUMASK - write only
		return p.ppuStatus & 0x1F // Return open bus with lower 5 bits
	case 0x2002: // PPUSTATUS
		status := p.ppuStatus
		p.ppuStatus &= 0x3F // Clear VBL flag (bit 7) and sprite 0 hit flag (bit 6)
		p.sprite0Hit = false // Clear internal sprite 0 hit flag
		p.w = false         // Clear write latch
		return status
	case 0x2003: // OAMADDR - write only
		return p.ppuStatus & 0x1F // Return open bus with lower 5 bits
	case 0x2004: // OAMDATA
		return p.oam[p.oamAddr]
	case 0x2005: // PPUSCROLL - write only
		return p.ppuStatus & 0x1F // Return open bus with lower 5 bits
	case 0x2006: // PPUADDR - write only
		return p.ppuStatus & 0x1F // Return open bus with lower 5 bits
	case 0x2007: // PPUDATA
		return p.readPPUData()
	default:
		return 0
	}
}

// WriteRegister writes to a PPU register (CPU $2000-$2007)
func (p *PPU) WriteRegister(address uint16, value uint8) {
	switch address {
	case 0x2000: // PPUCTRL
		p.ppuCtrl = value
		p.t = (p.t & 0xF3FF) | ((uint16(value) & 0x03) << 10) // Nametable select
		p.updateRenderingFlags()
		p.checkNMI()
	case 0x2001: // PPUMASK
		p.ppuMask = value
		p.updateRenderingFlags()
	case 0x2002: // PPUSTATUS - read only
		// Writes are ignored
	case 0x2003: // OAMADDR
		p.oamAddr = value
	case 0x2004: // OAMDATA
		p.oam[p.oamAddr] = value
		p.oamAddr++ // Auto-increment
	case 0x2005: // PPUSCROLL
		p.writePPUScroll(value)
	case 0x2006: // PPUADDR
		p.writePPUAddr(value)
	case 0x2007: // PPUDATA
		p.writePPUData(value)
	}
}

// WriteOAM writes to OAM at the specified address (for DMA)
func (p *PPU) WriteOAM(address uint8, value uint8) {
	p.oam[address] = value
}

// Step advances the PPU by one dot.
func (p *PPU) Step() {
	p.cycleCount++
	p.cycle++

	// NTSC odd-frame dot skip: with rendering (background or sprites)
	// enabled, the pre-render scanline is one dot short on odd frames,
	// going from dot 339 straight to (0,0) instead of running dot 340.
	// The frame was already counted when scanline 260 wrapped to -1.
	if p.scanline == -1 && p.cycle == 340 && p.oddFrame && p.renderingEnabled {
		p.cycle = 0
		p.scanline = 0
	} else if p.cycle > 340 {
		p.cycle = 0
		p.scanline++

		if p.scanline > 260 {
			p.scanline = -1
			p.frameCount++
			p.oddFrame = !p.oddFrame

			if p.frameCompleteCallback != nil {
				p.frameCompleteCallback()
			}
		}
	}

	// Handle VBlank start at scanline 241, cycle 1
	if p.scanline == 241 && p.cycle == 1 {
		// Set VBL flag
		p.ppuStatus |= 0x80
		// Clear sprite 0 hit and sprite overflow flags at VBlank start.
		p.ppuStatus &= 0x9F // Clear bits 6 (sprite 0 hit) and 5 (sprite overflow), keep VBL flag
		p.sprite0Hit = false    // Clear internal sprite 0 hit flag
		p.spriteOverflow = false // Clear internal sprite overflow flag

		// Trigger NMI if enabled
		if p.ppuCtrl&0x80 != 0 && p.nmiCallback != nil {
			p.nmiCallback()
		}
	}

	// Handle VBlank end at scanline -1 (pre-render), cycle 1
	if p.scanline == -1 && p.cycle == 1 {
		// Clear VBL flag only (sprite flags already cleared at VBlank start)
		p.ppuStatus &= 0x7F // Clear bit 7 (VBL flag) only
	}

	// At start of visible frame, copy scroll position from t to v if rendering enabled
	if p.scanline == 0 && p.cycle == 0 && p.renderingEnabled {
		// This ensures the scroll position set during vblank takes effect
		p.v = p.t
	}

	// Handle rendering cycles
	if p.scanline >= -1 && p.scanline < 240 {
		p.renderCycle()
	}
}

// renderCycle handles the per-dot background fetch/shift pipeline, sprite
// evaluation and fetch, and pixel output for a single PPU dot.
func (p *PPU) renderCycle() {
	if p.scanline < -1 || p.scanline >= 240 {
		return
	}
	if p.memory == nil {
		return
	}
	if !p.renderingEnabled {
		return
	}

	preLine := p.scanline == -1
	visibleLine := p.scanline >= 0 && p.scanline < 240

	visibleCycle := p.cycle >= 1 && p.cycle <= 256
	preFetchCycle := p.cycle >= 321 && p.cycle <= 336
	fetchCycle := visibleCycle || preFetchCycle

	// The background shifters advance on dots 2-257 and 322-337, before the
	// pixel is composed, so dot 1 shows the first prefetched tile's bit 7.
	if (p.cycle >= 2 && p.cycle <= 257) || (p.cycle >= 322 && p.cycle <= 337) {
		p.bgShiftPatLo <<= 1
		p.bgShiftPatHi <<= 1
		p.bgShiftAttrLo <<= 1
		p.bgShiftAttrHi <<= 1
	}

	if visibleLine && visibleCycle {
		p.renderPixel()
	}

	if fetchCycle {
		switch p.cycle % 8 {
		case 1:
			p.loadBackgroundShifters()
			p.fetchNametableByte()
		case 3:
			p.fetchAttributeByte()
		case 5:
			p.fetchPatternLow()
		case 7:
			p.fetchPatternHigh()
		case 0:
			p.incrementX()
		}
	}

	if p.cycle == 256 {
		p.incrementY()
	}
	if p.cycle == 257 {
		p.loadBackgroundShifters()
		p.copyX()
	}
	if preLine && p.cycle >= 280 && p.cycle <= 304 {
		p.copyY()
	}

	// Sprite pattern fetches occupy dots 257-320, a hardware phase
	// separate from the background's 1-256/321-336 fetch windows so the
	// two never compete for the same CHR read in a single dot.
	if p.cycle >= 257 && p.cycle <= 320 {
		if p.cycle == 257 {
			p.oamAddr = 0
			if p.spritesEnabled {
				p.evaluateSprites()
			}
		}
		if p.spritesEnabled {
			offset := (p.cycle - 257) % 8
			slot := (p.cycle - 257) / 8
			if offset == 7 {
				p.fetchSpritePattern(slot)
			}
		}
	}
}

// renderPixel composites the background and sprite shift-register output
// for the pixel at the current dot and writes it to the frame buffer. No
// memory reads happen here beyond the final palette lookup: all pattern
// table access already happened during this scanline's fetch windows.
func (p *PPU) renderPixel() {
	pixelX := p.cycle - 1
	pixelY := p.scanline

	var bgColorIndex, bgPaletteIndex uint8
	if p.backgroundEnabled {
		bitMux := uint16(0x8000) >> p.x

		var bit0, bit1 uint8
		if p.bgShiftPatLo&bitMux != 0 {
			bit0 = 1
		}
		if p.bgShiftPatHi&bitMux != 0 {
			bit1 = 1
		}
		bgColorIndex = (bit1 << 1) | bit0

		var a0, a1 uint8
		if p.bgShiftAttrLo&bitMux != 0 {
			a0 = 1
		}
		if p.bgShiftAttrHi&bitMux != 0 {
			a1 = 1
		}
		bgPaletteIndex = (a1 << 1) | a0
	}

	leftEdge := pixelX < 8
	if leftEdge && p.ppuMask&0x02 == 0 {
		bgColorIndex = 0
	}

	var spriteColorIndex, spritePaletteIndex uint8
	var spritePriority, spriteIsZero, spriteFound bool
	if p.spritesEnabled {
		for slot := 0; slot < int(p.spriteCount); slot++ {
			offset := pixelX - int(p.spriteX[slot])
			if offset < 0 || offset >= 8 {
				continue
			}
			bit := uint(7 - offset)
			bit0 := (p.spritePatLo[slot] >> bit) & 1
			bit1 := (p.spritePatHi[slot] >> bit) & 1
			colorIndex := (bit1 << 1) | bit0
			if colorIndex == 0 {
				continue
			}
			spriteColorIndex = colorIndex
			spritePaletteIndex = p.spriteAttr[slot] & 0x03
			spritePriority = p.spriteAttr[slot]&0x20 != 0
			spriteIsZero = p.spriteIsZero[slot]
			spriteFound = true
			break
		}
	}
	if leftEdge && p.ppuMask&0x04 == 0 {
		spriteFound = false
	}

	if spriteFound && spriteIsZero && bgColorIndex != 0 && p.backgroundEnabled &&
		p.spritesEnabled && pixelX < 255 && !p.sprite0Hit {
		clipped := leftEdge && (p.ppuMask&0x02 == 0 || p.ppuMask&0x04 == 0)
		if !clipped {
			p.sprite0Hit = true
			p.ppuStatus |= 0x40
		}
	}

	var finalColor uint32
	switch {
	case !spriteFound && bgColorIndex == 0:
		finalColor = p.NESColorToRGB(p.memory.Read(0x3F00))
	case !spriteFound:
		finalColor = p.NESColorToRGB(p.memory.Read(0x3F00 + uint16(bgPaletteIndex)*4 + uint16(bgColorIndex)))
	case bgColorIndex == 0:
		finalColor = p.NESColorToRGB(p.memory.Read(0x3F10 + uint16(spritePaletteIndex)*4 + uint16(spriteColorIndex)))
	case spritePriority:
		finalColor = p.NESColorToRGB(p.memory.Read(0x3F00 + uint16(bgPaletteIndex)*4 + uint16(bgColorIndex)))
	default:
		finalColor = p.NESColorToRGB(p.memory.Read(0x3F10 + uint16(spritePaletteIndex)*4 + uint16(spriteColorIndex)))
	}

	p.frameBuffer[pixelY*256+pixelX] = finalColor
}

// evaluateSprites finds the sprites visible on the current scanline. Once
// 8 in-range sprites have been found, it switches to the real hardware's
// buggy overflow-detection algorithm: the evaluation pointer's byte index
// increments in lockstep with the sprite index instead of resetting to the
// Y byte, so it walks diagonally through OAM rather than checking each
// sprite's Y coordinate. This can both falsely set the overflow flag and
// fail to set it even when more than 8 sprites are in range - reproduced
// here exactly rather than "fixed".
func (p *PPU) evaluateSprites() {
	p.lastEvalScanline = p.scanline

	// Evaluation at dot 257 of scanline N selects sprites for scanline N+1:
	// the secondary OAM and pattern fetches that follow in this same dot
	// range (257-320) feed the rendering of the NEXT scanline's pixels.
	target := p.scanline + 1

	p.spriteCount = 0
	p.spriteOverflow = false

	for i := range p.secondaryOAM {
		p.secondaryOAM[i] = 0xFF
	}
	for i := range p.spriteIndexes {
		p.spriteIndexes[i] = 0xFF
	}

	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 { // PPUCTRL bit 5
		spriteHeight = 16
	}

	n := 0
	found := 0
	for n < 64 && found < 8 {
		y := int(p.oam[n*4])
		if target >= y+1 && target < y+1+spriteHeight {
			secondaryIndex := found * 4
			copy(p.secondaryOAM[secondaryIndex:secondaryIndex+4], p.oam[n*4:n*4+4])
			p.spriteIndexes[found] = uint8(n)
			found++
		}
		n++
	}
	p.spriteCount = uint8(found)

	if found == 8 {
		m := 0
		for n < 64 {
			y := int(p.oam[n*4+m])
			inRange := target >= y+1 && target < y+1+spriteHeight
			if inRange {
				p.spriteOverflow = true
				p.ppuStatus |= 0x20
				break
			}
			n++
			m++
			if m == 4 {
				m = 0
			}
		}
	}
}

// fetchSpritePattern reads the pattern bytes for one secondary-OAM slot,
// resolving 8x16 tile selection and flips so renderPixel can composite
// sprites with no further memory access.
func (p *PPU) fetchSpritePattern(slot int) {
	secondaryIndex := slot * 4
	sY := int(p.secondaryOAM[secondaryIndex])
	tileIndex := p.secondaryOAM[secondaryIndex+1]
	attributes := p.secondaryOAM[secondaryIndex+2]
	sX := p.secondaryOAM[secondaryIndex+3]

	spriteHeight := 8
	if p.ppuCtrl&0x20 != 0 {
		spriteHeight = 16
	}

	row := p.scanline + 1 - (sY + 1)
	if row < 0 || row >= spriteHeight {
		row = 0 // unused slot (spriteCount < 8): pattern is fetched but never rendered
	}
	if attributes&0x80 != 0 { // Vertical flip
		row = spriteHeight - 1 - row
	}

	var patternTableBase uint16
	if spriteHeight == 8 {
		if p.ppuCtrl&0x08 != 0 {
			patternTableBase = 0x1000
		}
	} else {
		if tileIndex&0x01 != 0 {
			patternTableBase = 0x1000
		}
		tileIndex &= 0xFE
		if row >= 8 {
			tileIndex++
			row -= 8
		}
	}

	addr := patternTableBase + uint16(tileIndex)*16 + uint16(row)
	lo := p.memory.Read(addr)
	hi := p.memory.Read(addr + 8)

	if attributes&0x40 != 0 { // Horizontal flip
		lo = reverseBits(lo)
		hi = reverseBits(hi)
	}

	p.spritePatLo[slot] = lo
	p.spritePatHi[slot] = hi
	p.spriteX[slot] = sX
	p.spriteAttr[slot] = attributes
	p.spriteIsZero[slot] = p.spriteIndexes[slot] == 0
}

// reverseBits flips the bit order of a pattern byte, used to resolve
// horizontal sprite flip once at fetch time instead of on every pixel.
func reverseBits(b uint8) uint8 {
	b = (b&0xF0)>>4 | (b&0x0F)<<4
	b = (b&0xCC)>>2 | (b&0x33)<<2
	b = (b&0xAA)>>1 | (b&0x55)<<1
	return b
}

// loadBackgroundShifters merges the latched next-tile bytes into the low
// byte of each 16-bit shift register. The high byte, already holding the
// tile currently being scanned out, is left untouched.
func (p *PPU) loadBackgroundShifters() {
	p.bgShiftPatLo = (p.bgShiftPatLo & 0xFF00) | uint16(p.bgNextPatLo)
	p.bgShiftPatHi = (p.bgShiftPatHi & 0xFF00) | uint16(p.bgNextPatHi)

	var attrLo, attrHi uint16
	if p.bgNextAttr&0x01 != 0 {
		attrLo = 0x00FF
	}
	if p.bgNextAttr&0x02 != 0 {
		attrHi = 0x00FF
	}
	p.bgShiftAttrLo = (p.bgShiftAttrLo & 0xFF00) | attrLo
	p.bgShiftAttrHi = (p.bgShiftAttrHi & 0xFF00) | attrHi
}

// fetchNametableByte fetches the tile ID for the tile at the current v.
func (p *PPU) fetchNametableByte() {
	addr := 0x2000 | (p.v & 0x0FFF)
	p.bgNextTileID = p.memory.Read(addr)
}

// fetchAttributeByte fetches the attribute byte covering the current
// coarse tile and extracts the 2-bit palette select for its quadrant.
func (p *PPU) fetchAttributeByte() {
	addr := 0x23C0 | (p.v & 0x0C00) | ((p.v >> 4) & 0x38) | ((p.v >> 2) & 0x07)
	b := p.memory.Read(addr)
	shift := ((p.v >> 4) & 4) | (p.v & 2)
	p.bgNextAttr = (b >> shift) & 0x03
}

// fetchPatternLow fetches the low pattern-table plane byte for the
// latched tile ID, at the current fine Y row.
func (p *PPU) fetchPatternLow() {
	addr := p.backgroundPatternBase() + uint16(p.bgNextTileID)*16 + p.getFineY()
	p.bgNextPatLo = p.memory.Read(addr)
}

// fetchPatternHigh fetches the high pattern-table plane byte, 8 bytes
// past the low plane byte for the same tile and row.
func (p *PPU) fetchPatternHigh() {
	addr := p.backgroundPatternBase() + uint16(p.bgNextTileID)*16 + p.getFineY() + 8
	p.bgNextPatHi = p.memory.Read(addr)
}

// backgroundPatternBase returns the pattern table base selected by
// PPUCTRL bit 4.
func (p *PPU) backgroundPatternBase() uint16 {
	if p.ppuCtrl&0x10 != 0 {
		return 0x1000
	}
	return 0x0000
}

// updateRenderingFlags updates internal rendering state based on PPUMASK
func (p *PPU) updateRenderingFlags() {
	p.backgroundEnabled = (p.ppuMask & 0x08) != 0
	p.spritesEnabled = (p.ppuMask & 0x10) != 0
	p.renderingEnabled = p.backgroundEnabled || p.spritesEnabled
}

// checkNMI checks if an NMI should be triggered
func (p *PPU) checkNMI() {
	if (p.ppuCtrl&0x80 != 0) && (p.ppuStatus&0x80 != 0) && p.nmiCallback != nil {
		p.nmiCallback()
	}
}

// writePPUScroll handles writes to PPUSCROLL ($2005)
func (p *PPU) writePPUScroll(value uint8) {
	if !p.w {
		// First write: X scroll
		p.t = (p.t & 0xFFE0) | (uint16(value) >> 3) // Coarse X
		p.x = value & 0x07                          // Fine X
		p.w = true
	} else {
		// Second write: Y scroll
		p.t = (p.t & 0x8FFF) | ((uint16(value) & 0x07) << 12) // Fine Y
		p.t = (p.t & 0xFC1F) | ((uint16(value) & 0xF8) << 2)  // Coarse Y
		p.w = false
	}
}

// writePPUAddr handles writes to PPUADDR ($2006)
func (p *PPU) writePPUAddr(value uint8) {
	if !p.w {
		// First write: high byte
		p.t = (p.t & 0x80FF) | ((uint16(value) & 0x3F) << 8)
		p.w = true
	} else {
		// Second write: low byte
		p.t = (p.t & 0xFF00) | uint16(value)
		p.v = p.t
		p.w = false
	}
}

// readPPUData handles reads from PPUDATA ($2007)
func (p *PPU) readPPUData() uint8 {
	var data uint8

	if p.memory == nil {
		// No memory - return 0 but still increment address
		data = 0
	} else {
		if p.v >= 0x3F00 {
			// Palette data is not buffered
			data = p.memory.Read(p.v)
			p.readBuffer = p.memory.Read(p.v & 0x2FFF) // Update buffer with underlying nametable
		} else {
			// Other data is buffered
			data = p.readBuffer
			p.readBuffer = p.memory.Read(p.v)
		}
	}

	// Auto-increment address (this must happen regardless of memory availability)
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32 // Increment by 32 (down)
	} else {
		p.v += 1 // Increment by 1 (across)
	}
	p.v &= 0x3FFF // Wrap to 14-bit address space

	return data
}

// writePPUData handles writes to PPUDATA ($2007)
func (p *PPU) writePPUData(value uint8) {
	if p.memory != nil {
		p.memory.Write(p.v, value)
	}

	// Auto-increment address (this must happen regardless of memory availability)
	if p.ppuCtrl&0x04 != 0 {
		p.v += 32 // Increment by 32 (down)
	} else {
		p.v += 1 // Increment by 1 (across)
	}
	p.v &= 0x3FFF // Wrap to 14-bit address space
}

// GetFrameBuffer returns the current frame buffer
func (p *PPU) GetFrameBuffer() [256 * 240]uint32 {
	return p.frameBuffer
}

// GetFrameCount returns the current frame count
func (p *PPU) GetFrameCount() uint64 {
	return p.frameCount
}

// SetFrameCount sets the frame count (for synchronization)
func (p *PPU) SetFrameCount(count uint64) {
	p.frameCount = count
}

// GetScanline returns the current scanline
func (p *PPU) GetScanline() int {
	return p.scanline
}

// GetCycle returns the current cycle
func (p *PPU) GetCycle() int {
	return p.cycle
}

// IsRenderingEnabled returns true if rendering is enabled
func (p *PPU) IsRenderingEnabled() bool {
	return p.renderingEnabled
}

// IsVBlank returns true if currently in vertical blank
func (p *PPU) IsVBlank() bool {
	return (p.ppuStatus & 0x80) != 0
}

// GetCycleCount returns the total PPU cycle count
func (p *PPU) GetCycleCount() uint64 {
	return p.cycleCount
}

// NES 2C02 Color Palette (NTSC) - Based on Dendy emulator palette
var nesColorPalette = [64]uint32{
	// Row 0 (0x00-0x0F)
	0xFF666666, 0xFF002A88, 0xFF1412A7, 0xFF3B00A4, 0xFF5C007E, 0xFF6E0040, 0xFF6C0600, 0xFF561D00,
	0xFF333500, 0xFF0B4800, 0xFF005200, 0xFF004F08, 0xFF00404D, 0xFF000000, 0xFF000000, 0xFF000000,
	// Row 1 (0x10-0x1F)
	0xFFADADAD, 0xFF155FD9, 0xFF4240FF, 0xFF7527FE, 0xFFA01ACC, 0xFFB71E7B, 0xFFB53120, 0xFF994E00,
	0xFF6B6D00, 0xFF388700, 0xFF0C9300, 0xFF008F32, 0xFF007C8D, 0xFF000000, 0xFF000000, 0xFF000000,
	// Row 2 (0x20-0x2F)
	0xFFFFFEFF, 0xFF64B0FF, 0xFF9290FF, 0xFFC676FF, 0xFFF36AFF, 0xFFFE6ECC, 0xFFFE8170, 0xFFEA9E22,
	0xFFBCBE00, 0xFF88D800, 0xFF5CE430, 0xFF45E082, 0xFF48CDDE, 0xFF4F4F4F, 0xFF000000, 0xFF000000,
	// Row 3 (0x30-0x3F)
	0xFFFFFEFF, 0xFFC0DFFF, 0xFFD3D2FF, 0xFFE8C8FF, 0xFFFBC2FF, 0xFFFEC4EA, 0xFFFECCC5, 0xFFF7D8A5,
	0xFFE4E594, 0xFFCFF29B, 0xFFBEFBB3, 0xFFB8F8D8, 0xFFB8F8F8, 0xFF000000, 0xFF000000, 0xFF000000,
}

// NESColorToRGB converts a NES color index to RGB value
func NESColorToRGB(colorIndex uint8) uint32 {
	if colorIndex >= 64 {
		return 0x000000 // Return black for invalid indices
	}
	// Remove alpha channel to return RGB format (0x00RRGGBB)
	return nesColorPalette[colorIndex] & 0x00FFFFFF
}

// NESColorToRGB converts a NES color index to RGB value (PPU method)
func (p *PPU) NESColorToRGB(colorIndex uint8) uint32 {
	return NESColorToRGB(colorIndex)
}

// SetPalette replaces the 64-entry NES color lookup table used by
// NESColorToRGB, letting a host load an alternate .pal file (different CRT
// calibrations disagree on the exact NESdev RGB values). Affects every PPU
// instance process-wide, matching the table's original package-level scope.
func SetPalette(table [64]uint32) {
	nesColorPalette = table
}

// Palette returns the 64-entry NES color lookup table currently in effect.
func Palette() [64]uint32 {
	return nesColorPalette
}

// ClearFrameBuffer clears the frame buffer to a specific color
func (p *PPU) ClearFrameBuffer(color uint32) {
	for i := range p.frameBuffer {
		p.frameBuffer[i] = color
	}
}

// getFineY extracts the fine Y scroll from v register (bits 12-14)
func (p *PPU) getFineY() uint16 {
	return (p.v >> 12) & 0x0007
}

// incrementX increments the coarse X and wraps to next nametable if needed
func (p *PPU) incrementX() {
	// If coarse X == 31
	if (p.v & 0x001F) == 31 {
		p.v &= ^uint16(0x001F) // Clear coarse X
		p.v ^= 0x0400         // Switch horizontal nametable
	} else {
		p.v++ // Increment coarse X
	}
}

// incrementY increments fine Y, and if it overflows, increments coarse Y
func (p *PPU) incrementY() {
	// If fine Y < 7
	if (p.v & 0x7000) != 0x7000 {
		p.v += 0x1000 // Increment fine Y
	} else {
		p.v &= ^uint16(0x7000) // Clear fine Y
		y := (p.v & 0x03E0) >> 5 // Coarse Y
		if y == 29 {
			y = 0
			p.v ^= 0x0800 // Switch vertical nametable
		} else if y == 31 {
			y = 0 // Wrap around without switching nametable
		} else {
			y++ // Increment coarse Y
		}
		p.v = (p.v & ^uint16(0x03E0)) | (y << 5) // Put coarse Y back into v
	}
}

// copyX copies all X-related bits from t to v (bits 10, 4-0)
func (p *PPU) copyX() {
	p.v = (p.v & 0xFBE0) | (p.t & 0x041F)
}

// copyY copies all Y-related bits from t to v (bits 11, 14-5)
func (p *PPU) copyY() {
	p.v = (p.v & 0x841F) | (p.t & 0x7BE0)
}

// State is the serializable snapshot used by internal/savestate. It covers
// every register and piece of rendering state that affects future
// emulation; VRAM/palette/OAM content is included directly so a restored
// PPU behaves identically to one that kept running.
type State struct {
	PPUCtrl, PPUMask, PPUStatus uint8
	OAMAddr                     uint8
	V, T                        uint16
	X                           uint8
	W                           bool
	Scanline, Cycle             int
	FrameCount                  uint64
	OddFrame                    bool
	ReadBuffer                  uint8
	OAM                         [256]uint8
	SecondaryOAM                [32]uint8
	SpriteCount                 uint8
	Sprite0Hit                  bool
	SpriteOverflow              bool
	CycleCount                  uint64

	BgNextTileID  uint8
	BgNextAttr    uint8
	BgNextPatLo   uint8
	BgNextPatHi   uint8
	BgShiftPatLo  uint16
	BgShiftPatHi  uint16
	BgShiftAttrLo uint16
	BgShiftAttrHi uint16

	SpriteIndexes [8]uint8
	SpritePatLo   [8]uint8
	SpritePatHi   [8]uint8
	SpriteX       [8]uint8
	SpriteAttr    [8]uint8
	SpriteIsZero  [8]bool
}

// Snapshot captures the PPU's serializable state.
func (p *PPU) Snapshot() State {
	return State{
		PPUCtrl: p.ppuCtrl, PPUMask: p.ppuMask, PPUStatus: p.ppuStatus,
		OAMAddr: p.oamAddr, V: p.v, T: p.t, X: p.x, W: p.w,
		Scanline: p.scanline, Cycle: p.cycle, FrameCount: p.frameCount,
		OddFrame: p.oddFrame, ReadBuffer: p.readBuffer, OAM: p.oam,
		SecondaryOAM: p.secondaryOAM, SpriteCount: p.spriteCount,
		Sprite0Hit: p.sprite0Hit, SpriteOverflow: p.spriteOverflow,
		CycleCount: p.cycleCount,

		BgNextTileID: p.bgNextTileID, BgNextAttr: p.bgNextAttr,
		BgNextPatLo: p.bgNextPatLo, BgNextPatHi: p.bgNextPatHi,
		BgShiftPatLo: p.bgShiftPatLo, BgShiftPatHi: p.bgShiftPatHi,
		BgShiftAttrLo: p.bgShiftAttrLo, BgShiftAttrHi: p.bgShiftAttrHi,

		SpriteIndexes: p.spriteIndexes, SpritePatLo: p.spritePatLo,
		SpritePatHi: p.spritePatHi, SpriteX: p.spriteX,
		SpriteAttr: p.spriteAttr, SpriteIsZero: p.spriteIsZero,
	}
}

// Restore reinstates a previously captured snapshot.
func (p *PPU) Restore(s State) {
	p.ppuCtrl, p.ppuMask, p.ppuStatus = s.PPUCtrl, s.PPUMask, s.PPUStatus
	p.oamAddr, p.v, p.t, p.x, p.w = s.OAMAddr, s.V, s.T, s.X, s.W
	p.scanline, p.cycle, p.frameCount = s.Scanline, s.Cycle, s.FrameCount
	p.oddFrame, p.readBuffer, p.oam = s.OddFrame, s.ReadBuffer, s.OAM
	p.secondaryOAM, p.spriteCount = s.SecondaryOAM, s.SpriteCount
	p.sprite0Hit, p.spriteOverflow = s.Sprite0Hit, s.SpriteOverflow
	p.cycleCount = s.CycleCount

	p.bgNextTileID, p.bgNextAttr = s.BgNextTileID, s.BgNextAttr
	p.bgNextPatLo, p.bgNextPatHi = s.BgNextPatLo, s.BgNextPatHi
	p.bgShiftPatLo, p.bgShiftPatHi = s.BgShiftPatLo, s.BgShiftPatHi
	p.bgShiftAttrLo, p.bgShiftAttrHi = s.BgShiftAttrLo, s.BgShiftAttrHi

	p.spriteIndexes, p.spritePatLo = s.SpriteIndexes, s.SpritePatLo
	p.spritePatHi, p.spriteX = s.SpritePatHi, s.SpriteX
	p.spriteAttr, p.spriteIsZero = s.SpriteAttr, s.SpriteIsZero

	p.updateRenderingFlags()
}

// MemorySnapshot captures the nametable/palette content of the PPU's
// attached memory (VRAM + palette RAM), for internal/savestate.
func (p *PPU) MemorySnapshot() memory.PPUMemoryState { return p.memory.Snapshot() }

// RestoreMemory reinstates a previously captured PPUMemory snapshot.
func (p *PPU) RestoreMemory(s memory.PPUMemoryState) { p.memory.Restore(s) }
