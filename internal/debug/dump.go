// Package debug holds the debugger-hook tooling spec.md §4.2 alludes to
// ("a debugger hook can detect this condition") but never names concretely:
// structured state dumps, an opt-in CPU instruction tracer, a generalized
// memory-watchpoint logger, and a PNG frame dumper. None of it is reachable
// from internal/nes.Core's own API; hosts (internal/app, cmd/gones) opt in.
package debug

import (
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
)

// Dump pretty-prints v (typically a cpu.State/ppu.State/apu.State/memory.State
// snapshot, or a whole savestate block map) to w, labelled. Used by
// save-state round-trip tests to produce a readable diff on failure, and by
// any host wiring a debugger hook that wants a quick state inspector.
func Dump(w io.Writer, label string, v interface{}) {
	io.WriteString(w, label+":\n")
	spew.Fdump(w, v)
}

// DumpStderr is Dump against os.Stderr, for ad hoc use from a debugger
// breakpoint or a failing test.
func DumpStderr(label string, v interface{}) {
	Dump(os.Stderr, label, v)
}
