// Package compiler lowers a resolved AST to the register-based bytecode
// executed by lang/machine: a CodeFragment per function literal, built in a
// single pass that performs register allocation, lexical-capture boxing, and
// jump patching as it walks the tree (spec.md section 4.2).
package compiler

import "fmt"

// Opcode identifies one bytecode instruction kind. Instructions are packed
// into a 32-bit word: 8 bits opcode, 8 bits r0, 16 bits payload, where the
// payload is either two 8-bit register operands or an unsigned 16-bit
// immediate/offset/constant index (spec.md section 4.3).
type Opcode uint8

//nolint:revive
const (
	NOP Opcode = iota

	// Load: write an immediate or a constant into r0.
	LOAD_CONST  // r0 <- constants[payload]
	LOAD_I_SN   // r0 <- float64(int16(payload))   small immediate number
	LOAD_I_BOOL // r0 <- bool(payload != 0)
	LOAD_I_NULL // r0 <- null

	// Globals.
	READ_GLOBAL  // r0 <- globals[payload]
	WRITE_GLOBAL // globals[payload] <- r0

	MOVE // r0 <- r1   (payload = {r1, _})

	// Arithmetic: Number (op) Number -> Number. ADD is additionally overloaded
	// for String (concat, allocates a transient string) and Array (concat,
	// allocates a new array).
	ADD // r0 <- r1 + r2   (payload = {r1, r2})
	SUB
	MUL
	DIV
	MOD
	POW       // r0 <- r1 ** r2   (payload = {r1, r2})
	NEGATE    // r0 <- -r1        (payload = {r1, _})
	INCREMENT // r0 <- r0 + 1     (in place, emitted after each FOR_INT loop body)

	// Bitwise. Not named in spec.md's opcode table, which enumerates
	// representative classes rather than every operator; grounded the same
	// way as the Arithmetic class (3-register form), see DESIGN.md.
	BITAND
	BITOR
	BITXOR
	BITNOT // r0 <- ~r1   (payload = {r1, _})

	// Comparison: returns Boolean.
	EQUAL
	NEQUAL
	LESS
	GREATER
	LESSEQ
	GREATEREQ

	// Logic. && and || short-circuit and compile to CONDSKIP/JUMP, like if/while
	// (see compiler.go); NOT is the only logic opcode, for unary `!`.
	// Truthiness: null, false, and numeric zero are falsy.
	NOT // r0 <- !truthy(r1)   (payload = {r1, _})

	LEN // r0 <- length(r1)    (payload = {r1, _})

	// Shift. On numbers: bit shift. On an array with RHS value: SHL appends,
	// SHR pops-and-returns.
	SHL // r0 <- r1 << r2, or array r1.push(r2)     (payload = {r1, r2})
	SHR // r0 <- r1 >> r2, or r0 <- r1.pop()         (payload = {r1, r2})

	// Allocation.
	ALLOC_ARRAY  // r0 <- new array from stack[base:base+count] (payload = {base, count})
	ALLOC_OBJECT // r0 <- new object from template payload      (payload = template index)
	ALLOC_FUNC   // r0 <- new closure over Functions[payload], capturing per its CaptureInfo
	ALLOC_BOX    // r0 <- Box(r0) in place (idempotent: no-op if r0 already boxed)

	// Box indirection: a captured local lives boxed in its own register, so
	// every read/write of it goes through BOX_LOAD/BOX_STORE rather than MOVE.
	BOX_LOAD  // r0 <- *r1   (payload = {r1, _})
	BOX_STORE // *r0 <- r1   (payload = {r1, _})

	// Indexing.
	LOAD_ARRAY   // r0 <- r1[r2]          (payload = {r1, r2})
	STORE_ARRAY  // r0[r1] <- r2          (payload = {r1, r2})
	LOAD_OBJECT  // r0 <- r1[r2]          (payload = {r1, r2}, r2 holds an interned-string key)
	STORE_OBJECT // r0[r1] <- r2          (payload = {r1, r2})

	// Control flow. CONDSKIP advances PC by one extra (skipping the
	// instruction immediately following it, conventionally a JUMPF/JUMPB) when
	// r0 is truthy.
	JUMPF    // pc += payload
	JUMPB    // pc -= payload
	CONDSKIP // if truthy(r0) { pc++ }

	// For-loop state machine (spec.md section 4.3). r0 is the iterator-state
	// register, payload's r1 is the iterable/bound register, payload's r2 is
	// the first user variable register (r2+1 for the two-variable form).
	FOR_ITER_INIT // r0 <- initial iterator state for r1
	FOR_ITER      // on "has next": r2(+1) <- element(s), pc++ (skip trailing JUMPF); on "end": fall through
	FOR_ITER2     // two-variable form of FOR_ITER (object key, value)
	FOR_ITER_NEXT // r0 <- next iterator state
	FOR_INT       // test r0 < r1 (has-next/end contract as FOR_ITER); no side effect, counter advanced by a trailing INCREMENT

	// Call. CALL overwrites r0 in place with the callee's return value.
	CALL // r0 <- call(r0, args at [r2, r2+r1))   (payload = {argCount, frameBase})
	RET  // return r0 if payload != 0, else return null

	opcodeMax
)

var opcodeNames = [...]string{
	NOP:           "nop",
	LOAD_CONST:    "load_const",
	LOAD_I_SN:     "load_i_sn",
	LOAD_I_BOOL:   "load_i_bool",
	LOAD_I_NULL:   "load_i_null",
	READ_GLOBAL:   "read_global",
	WRITE_GLOBAL:  "write_global",
	MOVE:          "move",
	ADD:           "add",
	SUB:           "sub",
	MUL:           "mul",
	DIV:           "div",
	MOD:           "mod",
	POW:           "pow",
	NEGATE:        "negate",
	INCREMENT:     "increment",
	BITAND:        "bitand",
	BITOR:         "bitor",
	BITXOR:        "bitxor",
	BITNOT:        "bitnot",
	EQUAL:         "equal",
	NEQUAL:        "nequal",
	LESS:          "less",
	GREATER:       "greater",
	LESSEQ:        "lesseq",
	GREATEREQ:     "greatereq",
	NOT:           "not",
	LEN:           "len",
	SHL:           "shl",
	SHR:           "shr",
	ALLOC_ARRAY:   "alloc_array",
	ALLOC_OBJECT:  "alloc_object",
	ALLOC_FUNC:    "alloc_func",
	ALLOC_BOX:     "alloc_box",
	BOX_LOAD:      "box_load",
	BOX_STORE:     "box_store",
	LOAD_ARRAY:    "load_array",
	STORE_ARRAY:   "store_array",
	LOAD_OBJECT:   "load_object",
	STORE_OBJECT:  "store_object",
	JUMPF:         "jumpf",
	JUMPB:         "jumpb",
	CONDSKIP:      "condskip",
	FOR_ITER_INIT: "for_iter_init",
	FOR_ITER:      "for_iter",
	FOR_ITER2:     "for_iter2",
	FOR_ITER_NEXT: "for_iter_next",
	FOR_INT:       "for_int",
	CALL:          "call",
	RET:           "ret",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return fmt.Sprintf("illegal opcode (%d)", op)
}

var reverseOpcodes = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeNames))
	for op, name := range opcodeNames {
		if name != "" {
			m[name] = Opcode(op)
		}
	}
	return m
}()

// Instr is one packed 32-bit instruction word.
type Instr uint32

// Encode packs an opcode, r0, and 16-bit payload into one instruction word.
func Encode(op Opcode, r0 byte, payload uint16) Instr {
	return Instr(op) | Instr(r0)<<8 | Instr(payload)<<16
}

// EncodeRR packs an opcode with r0 and two register operands in the payload.
func EncodeRR(op Opcode, r0, r1, r2 byte) Instr {
	return Encode(op, r0, uint16(r1)|uint16(r2)<<8)
}

func (i Instr) Op() Opcode      { return Opcode(byte(i)) }
func (i Instr) R0() byte        { return byte(i >> 8) }
func (i Instr) Payload() uint16 { return uint16(i >> 16) }
func (i Instr) R1() byte        { return byte(i.Payload()) }
func (i Instr) R2() byte        { return byte(i.Payload() >> 8) }
