package compiler

import (
	"fmt"
	"strconv"
	"strings"
)

// Disassemble renders prog as human-readable text, one instruction per line,
// in the spirit of a Forth-style assembly listing (mnemonic plus operands):
// "pc: mnemonic r0, r1, r2" or "pc: mnemonic r0, #payload" depending on the
// opcode's operand shape. Used by the disassembler CLI subcommand and by the
// compiler tests, which parse its instruction lines back with
// ParseDisassembly (spec.md section 4.2).
func Disassemble(prog *Program) string {
	var b strings.Builder
	fmt.Fprintf(&b, "; module %s\n", prog.Name)
	for i, k := range prog.Constants {
		fmt.Fprintf(&b, "; const %d = %v\n", i, k)
	}
	for i, t := range prog.Objects {
		fmt.Fprintf(&b, "; object %d base=%d count=%d keys=%v\n", i, t.Base, t.Count, t.KeyConsts)
	}
	fmt.Fprintf(&b, "\nfunc %s (toplevel)\n", prog.Toplevel.Name)
	disassembleFragment(&b, prog.Toplevel)
	for i, f := range prog.Functions {
		fmt.Fprintf(&b, "\nfunc %d %s/%d\n", i, f.Name, f.NumParams)
		disassembleFragment(&b, f)
	}
	return b.String()
}

// threeRegOps are opcodes whose payload holds two register operands (vs. an
// immediate, constant index, or jump offset).
var threeRegOps = map[Opcode]bool{
	MOVE: true, NEGATE: true, BITNOT: true, NOT: true, LEN: true,
	ADD: true, SUB: true, MUL: true, DIV: true, MOD: true, POW: true,
	BITAND: true, BITOR: true, BITXOR: true,
	EQUAL: true, NEQUAL: true, LESS: true, GREATER: true, LESSEQ: true, GREATEREQ: true,
	SHL: true, SHR: true,
	ALLOC_ARRAY: true, LOAD_ARRAY: true, STORE_ARRAY: true, LOAD_OBJECT: true, STORE_OBJECT: true,
	BOX_LOAD: true, BOX_STORE: true,
	FOR_ITER_INIT: true, FOR_ITER: true, FOR_ITER2: true, FOR_ITER_NEXT: true, FOR_INT: true,
	CALL: true,
}

func disassembleFragment(b *strings.Builder, f *CodeFragment) {
	for pc, instr := range f.Code {
		op := instr.Op()
		fmt.Fprintf(b, "%4d  %-14s", pc, op.String())
		switch {
		case op == NOP:
		case op == RET:
			fmt.Fprintf(b, "r%d, #%d", instr.R0(), instr.Payload())
		case threeRegOps[op]:
			fmt.Fprintf(b, "r%d, r%d, r%d", instr.R0(), instr.R1(), instr.R2())
		case op == JUMPF || op == JUMPB:
			fmt.Fprintf(b, "#%d", instr.Payload())
		case op == CONDSKIP:
			fmt.Fprintf(b, "r%d", instr.R0())
		case op == ALLOC_BOX:
			fmt.Fprintf(b, "r%d", instr.R0())
		default:
			fmt.Fprintf(b, "r%d, #%d", instr.R0(), instr.Payload())
		}
		b.WriteByte('\n')
	}
}

// ParseDisassembly is a minimal reverse of Disassemble's instruction lines,
// used only by tests to assert round-trip stability of the encoding (it does
// not reconstruct constants/objects/functions, only a flat instruction list).
func ParseDisassembly(line string) (Instr, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed instruction line %q", line)
	}
	op, ok := reverseOpcodes[fields[1]]
	if !ok {
		return 0, fmt.Errorf("unknown opcode %q", fields[1])
	}
	var r0, r1, r2 byte
	var payload uint16
	ops := strings.Join(fields[2:], " ")
	parts := strings.Split(ops, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		var v int64
		var err error
		switch {
		case strings.HasPrefix(p, "r"):
			v, err = strconv.ParseInt(p[1:], 10, 16)
		case strings.HasPrefix(p, "#"):
			v, err = strconv.ParseInt(p[1:], 10, 32)
		}
		if err != nil {
			return 0, fmt.Errorf("malformed operand %q: %w", p, err)
		}
		switch i {
		case 0:
			if strings.HasPrefix(p, "#") {
				payload = uint16(v)
			} else {
				r0 = byte(v)
			}
		case 1:
			if strings.HasPrefix(p, "#") {
				payload = uint16(v)
			} else {
				r1 = byte(v)
			}
		case 2:
			r2 = byte(v)
		}
	}
	if threeRegOps[op] {
		return EncodeRR(op, r0, r1, r2), nil
	}
	return Encode(op, r0, payload), nil
}
