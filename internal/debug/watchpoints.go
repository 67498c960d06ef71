package debug

import (
	"fmt"
	"io"

	"gones/internal/memory"
)

// WatchpointLogger wires a memory.Watchpoints set to a text log, replacing
// the teacher's hardcoded SetupSMBWatchpoints/EnableWatchpointLogging pair
// with a generic, any-ROM version: callers name their own addresses and
// optional human-readable labels instead of a fixed Super Mario Bros table.
type WatchpointLogger struct {
	w      io.Writer
	wp     *memory.Watchpoints
	labels map[uint16]string
}

// NewWatchpointLogger creates a logger around a fresh, disabled
// memory.Watchpoints set. Pass Watchpoints() to the target Memory's
// SetWatchpoints to wire it in, then Add addresses and SetEnabled(true) to
// start logging.
func NewWatchpointLogger(w io.Writer) *WatchpointLogger {
	l := &WatchpointLogger{w: w, wp: memory.NewWatchpoints(), labels: make(map[uint16]string)}
	l.wp.OnHit(l.logHit)
	return l
}

// Watchpoints exposes the underlying set, for Memory.SetWatchpoints.
func (l *WatchpointLogger) Watchpoints() *memory.Watchpoints { return l.wp }

// Add starts tracking address, seeding its baseline from current. label is
// shown in log output; pass "" for none.
func (l *WatchpointLogger) Add(address uint16, current uint8, label string) {
	l.wp.Add(address, current)
	if label != "" {
		l.labels[address] = label
	}
}

// Remove stops tracking address.
func (l *WatchpointLogger) Remove(address uint16) {
	l.wp.Remove(address)
	delete(l.labels, address)
}

// SetEnabled turns log output on or off without discarding tracked addresses.
func (l *WatchpointLogger) SetEnabled(enabled bool) { l.wp.SetEnabled(enabled) }

func (l *WatchpointLogger) logHit(hit memory.WatchpointHit) {
	label := l.labels[hit.Address]
	if label == "" {
		label = "unlabeled"
	}
	fmt.Fprintf(l.w, "[WATCH] $%04X changed from $%02X to $%02X (%s)\n",
		hit.Address, hit.Old, hit.New, label)
}
