package debug

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gones/internal/cartridge"
	"gones/internal/memory"
)

type stubPPU struct{}

func (stubPPU) ReadRegister(uint16) uint8       { return 0 }
func (stubPPU) WriteRegister(uint16, uint8)     {}

type stubAPU struct{}

func (stubAPU) WriteRegister(uint16, uint8) {}
func (stubAPU) ReadStatus() uint8           { return 0 }

type stubCart struct{}

func (stubCart) ReadPRG(uint16) uint8             { return 0 }
func (stubCart) WritePRG(uint16, uint8)           {}
func (stubCart) ReadCHR(uint16) uint8              { return 0 }
func (stubCart) WriteCHR(uint16, uint8)           {}
func (stubCart) Mirroring() cartridge.MirrorMode  { return cartridge.MirrorHorizontal }
func (stubCart) CPUTick()                         {}
func (stubCart) PPUA12(bool)                      {}
func (stubCart) IRQPending() bool                 { return false }
func (stubCart) IRQAck()                          {}

func TestWatchpointLoggerLogsOnlyEnabledChanges(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWatchpointLogger(&buf)
	logger.Add(0x0086, 0x10, "player X")

	mem := memory.New(stubPPU{}, stubAPU{}, stubCart{})
	mem.SetWatchpoints(logger.Watchpoints())

	// Disabled: tracked, but no log line yet.
	mem.Write(0x0086, 0x20)
	require.Empty(t, buf.String())

	logger.SetEnabled(true)
	mem.Write(0x0086, 0x30)
	require.Contains(t, buf.String(), "$0086")
	require.Contains(t, buf.String(), "player X")
}

func TestWatchpointLoggerIgnoresUntrackedAddresses(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWatchpointLogger(&buf)
	logger.SetEnabled(true)

	mem := memory.New(stubPPU{}, stubAPU{}, stubCart{})
	mem.SetWatchpoints(logger.Watchpoints())

	mem.Write(0x0234, 0x01)
	require.Empty(t, buf.String())
}
