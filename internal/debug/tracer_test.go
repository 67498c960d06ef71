package debug

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionTracerFormatsOneLinePerCall(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewInstructionTracer(&buf)

	tracer.TraceInstruction(0xC000, 0x4C, 0x00, 0x01, 0x02, 0xFD, 0x24, 7)
	tracer.TraceInstruction(0xC003, 0xEA, 0x00, 0x01, 0x02, 0xFD, 0x24, 9)

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Contains(t, lines[0], "C000")
	require.Contains(t, lines[0], "4C")
	require.Contains(t, lines[0], "CYC:7")
	require.Contains(t, lines[1], "C003")
	require.Contains(t, lines[1], "CYC:9")
}
