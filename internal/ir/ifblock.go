package ir

import "fmt"

// IfBlock emits a chain of conditional blocks. Arms open in program order;
// every arm branches to a shared end label. The caller emits each arm's body
// between the call that opens the arm and the next call on the block.
type IfBlock struct {
	f           *Func
	id          int
	armID       int
	endLabel    string
	pendingNext string
	elseTaken   bool
	closed      bool
}

// If opens a conditional chain on cond and positions emission inside the
// first arm's body.
func (f *Func) If(cond Value) *IfBlock {
	b := &IfBlock{f: f, id: f.ifID}
	f.ifID++
	b.endLabel = fmt.Sprintf("if%d.end", b.id)
	then := fmt.Sprintf("if%d.then%d", b.id, b.armID)
	next := fmt.Sprintf("if%d.next%d", b.id, b.armID)
	fmt.Fprintf(&f.buf, "  br i1 %s, label %%%s, label %%%s\n", cond.Name, then, next)
	fmt.Fprintf(&f.buf, "%s:\n", then)
	b.pendingNext = next
	return b
}

// ElseIf closes the current arm and opens a new one. The condition callback
// runs after the previous arm's fall-through label is placed, so any
// instructions it emits land in the correct block.
func (b *IfBlock) ElseIf(cond func() Value) {
	if b.closed || b.elseTaken {
		return
	}
	fmt.Fprintf(&b.f.buf, "  br label %%%s\n", b.endLabel)
	fmt.Fprintf(&b.f.buf, "%s:\n", b.pendingNext)
	c := cond()
	b.armID++
	then := fmt.Sprintf("if%d.then%d", b.id, b.armID)
	next := fmt.Sprintf("if%d.next%d", b.id, b.armID)
	fmt.Fprintf(&b.f.buf, "  br i1 %s, label %%%s, label %%%s\n", c.Name, then, next)
	fmt.Fprintf(&b.f.buf, "%s:\n", then)
	b.pendingNext = next
}

// Else closes the current arm and positions emission inside the final arm.
func (b *IfBlock) Else() {
	if b.closed || b.elseTaken {
		return
	}
	fmt.Fprintf(&b.f.buf, "  br label %%%s\n", b.endLabel)
	fmt.Fprintf(&b.f.buf, "%s:\n", b.pendingNext)
	b.pendingNext = ""
	b.elseTaken = true
}

// End closes the chain and positions emission after it.
func (b *IfBlock) End() {
	if b.closed {
		return
	}
	fmt.Fprintf(&b.f.buf, "  br label %%%s\n", b.endLabel)
	if b.pendingNext != "" {
		fmt.Fprintf(&b.f.buf, "%s:\n", b.pendingNext)
		fmt.Fprintf(&b.f.buf, "  br label %%%s\n", b.endLabel)
	}
	fmt.Fprintf(&b.f.buf, "%s:\n", b.endLabel)
	b.closed = true
}
