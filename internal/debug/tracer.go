package debug

import (
	"fmt"
	"io"

	"gones/internal/cpu"
)

// InstructionTracer implements cpu.Tracer, writing one nestest-style log
// line per retired instruction to an underlying io.Writer. Installing it via
// cpu.CPU.SetTracer is the "debugger hook" spec.md §8 scenario 1 (golden-log
// comparison) drives against.
type InstructionTracer struct {
	w io.Writer
}

// NewInstructionTracer wraps w as a cpu.Tracer.
func NewInstructionTracer(w io.Writer) *InstructionTracer {
	return &InstructionTracer{w: w}
}

var _ cpu.Tracer = (*InstructionTracer)(nil)

// TraceInstruction formats one retired instruction as
// "PC  OP A:.. X:.. Y:.. P:.. SP:.. CYC:..", the column layout nestest.log
// comparisons key off.
func (t *InstructionTracer) TraceInstruction(pc uint16, opcode uint8, a, x, y, sp, p uint8, cycles uint64) {
	fmt.Fprintf(t.w, "%04X  %02X  A:%02X X:%02X Y:%02X P:%02X SP:%02X CYC:%d\n",
		pc, opcode, a, x, y, p, sp, cycles)
}
