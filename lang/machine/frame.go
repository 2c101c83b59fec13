package machine

import "github.com/mna/tack/lang/token"

// frame records one active call on the VM's call stack: which closure is
// running, where its registers start in the shared value stack, and where
// to resume the caller once it returns (spec.md section 4.3, "Call/return
// protocol": CALL saves PC/closure/stackbase, RET restores them and zeroes
// the abandoned frame's registers).
type frame struct {
	closure *Closure
	proto   *funcProto
	base    int // index into vm.stack where this frame's register 0 lives
	pc      int

	// retBase is the absolute stack index of the caller's CALL instruction's
	// r0 (the register that receives the return value), or -1 if this frame
	// was entered directly from Go (VM.Call / a CFunction call), which has no
	// caller register to write back into.
	retBase int
}

// Position returns the source line currently executing in this frame
// (fr.pc has already been advanced past that instruction, hence pc-1).
func (fr *frame) Position() token.Pos {
	return fr.proto.fragment.Position(fr.pc - 1)
}
