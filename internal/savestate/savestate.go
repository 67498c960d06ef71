// Package savestate implements the versioned block-based save-state format:
// a small fixed header (magic, version, flags, ROM hash, frame count, body
// checksum) followed by tagged component blocks, terminated by an end
// marker. Unknown blocks are skipped by length; missing non-critical blocks
// fall back to whatever Reset() already left in place.
package savestate

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"gones/internal/apu"
	"gones/internal/cartridge"
	"gones/internal/cpu"
	"gones/internal/memory"
	"gones/internal/ppu"
	"gones/internal/scheduler"
)

const (
	magicString          = "GNSS"
	formatVersion uint16  = 1
	blockVersion  uint16  = 1
	flagCompressed uint16 = 1 << 0
)

// Errors surfaced to Core.LoadState, matching spec.md §7's SaveState error
// taxonomy. All are recoverable: the caller's existing state is left
// untouched on any of these.
var (
	ErrBadMagic           = errors.New("savestate: bad magic")
	ErrUnsupportedVersion = errors.New("savestate: unsupported format version")
	ErrChecksumMismatch   = errors.New("savestate: body checksum mismatch")
	ErrRomMismatch        = errors.New("savestate: rom hash does not match the loaded cartridge")
	ErrTruncatedBlock     = errors.New("savestate: truncated block")
)

type blockTag [4]byte

var (
	tagCPU = blockTag{'C', 'P', 'U', 'S'}
	tagPPU = blockTag{'P', 'P', 'U', 'S'}
	tagAPU = blockTag{'A', 'P', 'U', 'S'}
	tagMem = blockTag{'M', 'E', 'M', 'S'}
	tagMap = blockTag{'M', 'A', 'P', 'S'}
	tagEnd = blockTag{'E', 'N', 'D', '0'}
)

// ppuBlock bundles the PPU's registers/internal state together with its
// attached nametable/palette memory, matching spec.md §7's "PPU (registers
// + VRAM + palette + OAM + internal state)" block description.
type ppuBlock struct {
	Core ppu.State
	Mem  memory.PPUMemoryState
}

// mapBlock bundles mapper register state with CHR-RAM, when present: both
// are cartridge-owned and switch together under bank-select writes.
type mapBlock struct {
	Mapper cartridge.MapperState
	CHRRAM []uint8
}

func init() {
	gob.Register(ppuBlock{})
	gob.Register(mapBlock{})
}

// Save serializes the scheduler's entire state into w. When compress is
// true the block body is zlib-compressed (flagCompressed is set so Load
// knows to decompress).
func Save(w io.Writer, s *scheduler.Scheduler, compress bool) error {
	var body bytes.Buffer
	if err := writeBlock(&body, tagCPU, s.CPU.Snapshot()); err != nil {
		return err
	}
	if err := writeBlock(&body, tagPPU, ppuBlock{Core: s.PPU.Snapshot(), Mem: s.PPU.MemorySnapshot()}); err != nil {
		return err
	}
	if err := writeBlock(&body, tagAPU, s.APU.Snapshot()); err != nil {
		return err
	}
	if err := writeBlock(&body, tagMem, s.Memory.Snapshot()); err != nil {
		return err
	}
	if s.Cart != nil {
		if err := writeBlock(&body, tagMap, mapBlock{Mapper: s.Cart.SaveMapperState(), CHRRAM: s.Cart.CHRRAM()}); err != nil {
			return err
		}
	}
	if err := writeEndMarker(&body); err != nil {
		return err
	}

	bodyBytes := body.Bytes()
	var flags uint16
	if compress {
		var compressed bytes.Buffer
		zw := zlib.NewWriter(&compressed)
		if _, err := zw.Write(bodyBytes); err != nil {
			return err
		}
		if err := zw.Close(); err != nil {
			return err
		}
		bodyBytes = compressed.Bytes()
		flags |= flagCompressed
	}

	var romHash uint32
	if s.Cart != nil {
		romHash = s.Cart.Rom().Hash
	}

	if _, err := w.Write([]byte(magicString)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, flags); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, romHash); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, s.FrameCount()); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, crc32.ChecksumIEEE(bodyBytes)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(bodyBytes))); err != nil {
		return err
	}
	_, err := w.Write(bodyBytes)
	return err
}

// Load deserializes r into s, replacing every component's state in place.
// If the save state's ROM hash doesn't match the cartridge already loaded
// into s, ErrRomMismatch is returned and s is left untouched; the caller
// may retry having obtained the user's consent, per spec.md §7.
func Load(r io.Reader, s *scheduler.Scheduler) error {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return fmt.Errorf("savestate: reading magic: %w", err)
	}
	if string(magic[:]) != magicString {
		return ErrBadMagic
	}

	var version, flags uint16
	var romHash uint32
	var frameCount uint64
	var bodyCRC uint32
	var bodyLen uint32
	for _, f := range []interface{}{&version, &flags, &romHash, &frameCount, &bodyCRC, &bodyLen} {
		if err := binary.Read(r, binary.LittleEndian, f); err != nil {
			return fmt.Errorf("savestate: reading header: %w", err)
		}
	}
	if version != formatVersion {
		return ErrUnsupportedVersion
	}
	if s.Cart != nil && romHash != s.Cart.Rom().Hash {
		return ErrRomMismatch
	}

	raw := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, raw); err != nil {
		return fmt.Errorf("savestate: reading body: %w", err)
	}
	if crc32.ChecksumIEEE(raw) != bodyCRC {
		return ErrChecksumMismatch
	}

	body := raw
	if flags&flagCompressed != 0 {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return fmt.Errorf("savestate: opening compressed body: %w", err)
		}
		defer zr.Close()
		decompressed, err := io.ReadAll(zr)
		if err != nil {
			return fmt.Errorf("savestate: decompressing body: %w", err)
		}
		body = decompressed
	}

	blocks, err := readBlocks(bytes.NewReader(body))
	if err != nil {
		return err
	}

	if payload, ok := blocks[tagCPU]; ok {
		var cpuState cpu.State
		if err := decodeBlock(payload, &cpuState); err != nil {
			return err
		}
		s.CPU.Restore(cpuState)
	}
	if payload, ok := blocks[tagPPU]; ok {
		var pb ppuBlock
		if err := decodeBlock(payload, &pb); err != nil {
			return err
		}
		s.PPU.Restore(pb.Core)
		s.PPU.RestoreMemory(pb.Mem)
	}
	if payload, ok := blocks[tagAPU]; ok {
		var apuState apu.State
		if err := decodeBlock(payload, &apuState); err != nil {
			return err
		}
		s.APU.Restore(apuState)
	}
	if payload, ok := blocks[tagMem]; ok {
		var memState memory.State
		if err := decodeBlock(payload, &memState); err != nil {
			return err
		}
		s.Memory.Restore(memState)
	}
	if payload, ok := blocks[tagMap]; ok && s.Cart != nil {
		var mb mapBlock
		if err := decodeBlock(payload, &mb); err != nil {
			return err
		}
		s.Cart.LoadMapperState(mb.Mapper)
		if mb.CHRRAM != nil {
			s.Cart.LoadCHRRAM(mb.CHRRAM)
		}
	}

	return nil
}

func writeBlock(w io.Writer, tag blockTag, v interface{}) error {
	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(&v); err != nil {
		return fmt.Errorf("savestate: encoding block %s: %w", tag, err)
	}
	if _, err := w.Write(tag[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(payload.Len())); err != nil {
		return err
	}
	_, err := w.Write(payload.Bytes())
	return err
}

func writeEndMarker(w io.Writer) error {
	if _, err := w.Write(tagEnd[:]); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, blockVersion); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, uint32(0))
}

// readBlocks walks the body's block stream and returns each non-end block's
// raw gob payload, keyed by tag. Unknown tags are retained too (the caller
// simply never looks them up), matching the "unknown blocks are skipped"
// forward-compatibility rule: skipping means "not required to understand",
// not "discarded before being read".
func readBlocks(r io.Reader) (map[blockTag][]byte, error) {
	blocks := make(map[blockTag][]byte)
	for {
		var tag blockTag
		_, err := io.ReadFull(r, tag[:])
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, fmt.Errorf("savestate: reading block tag: %w", err)
		}
		var version uint16
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
			return nil, ErrTruncatedBlock
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, ErrTruncatedBlock
		}
		if tag == tagEnd {
			return blocks, nil
		}
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, ErrTruncatedBlock
		}
		blocks[tag] = payload
	}
}

func decodeBlock(payload []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(v); err != nil {
		return fmt.Errorf("savestate: decoding block: %w", err)
	}
	return nil
}
