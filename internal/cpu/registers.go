package cpu

// pendingLoad is one cell of the two-deep load-delay pipeline (§4.3): a
// load's destination register is not visible until after the instruction
// following the load has executed.
type pendingLoad struct {
	reg   uint8
	value uint32
	valid bool
}

// Registers is the R3000A's general-purpose register file plus HI/LO and
// the load-delay pipeline.
type Registers struct {
	gpr [32]uint32
	HI  uint32
	LO  uint32

	current pendingLoad
	next    pendingLoad
}

// Read returns a register's committed value. r0 always reads 0.
func (r *Registers) Read(n uint8) uint32 {
	if n == 0 {
		return 0
	}
	return r.gpr[n]
}

// ReadForLoadMerge returns the value lwl/lwr should treat as "the current
// contents" of register n: if a load to n is already pending in the
// "current" (about-to-commit) cell, that value is used instead of the
// stale committed one, matching original_source's read_gpr_lwl_lwr.
func (r *Registers) ReadForLoadMerge(n uint8) uint32 {
	if n != 0 && r.current.valid && r.current.reg == n {
		return r.current.value
	}
	return r.Read(n)
}

// Write performs an immediate (non-delayed) register write. r0 is never
// mutated. A same-cycle write cancels any pending delayed load targeting
// the same register, per §4.3.
func (r *Registers) Write(n uint8, v uint32) {
	if n == 0 {
		return
	}
	r.gpr[n] = v
	if r.current.valid && r.current.reg == n {
		r.current.valid = false
	}
	if r.next.valid && r.next.reg == n {
		r.next.valid = false
	}
}

// WriteDelayed schedules v to land in register n after the *next*
// instruction commits (the load-delay slot). A new delayed load to the
// same register as an already-pending one replaces it rather than
// stacking.
func (r *Registers) WriteDelayed(n uint8, v uint32) {
	if n == 0 {
		return
	}
	if r.current.valid && r.current.reg == n {
		r.current.valid = false
	}
	r.next = pendingLoad{reg: n, value: v, valid: true}
}

// CommitDelayedLoads is called once per instruction: the "current" cell
// (scheduled by the *previous* instruction) is written to the register
// file, then "next" slides down into "current".
func (r *Registers) CommitDelayedLoads() {
	if r.current.valid {
		if r.current.reg != 0 {
			r.gpr[r.current.reg] = r.current.value
		}
	}
	r.current = r.next
	r.next = pendingLoad{}
}
