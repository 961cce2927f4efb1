/*
 * Copyright 2022 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package rv32

import (
    `fmt`
    `sort`

    `github.com/mxlang/mxc/internal/ssa`
)

// Emit renders a fully colored module as assembler-ready RV32IM text.
func Emit(mod *ssa.Module) string {
    asm := new(_Asm)

    /* code section */
    asm.dir(".text")
    for _, fn := range mod.Funcs {
        e := &_FuncEmitter { a: asm, fn: fn }
        e.emit()
    }

    /* globals: zero-initialized ones go to .bss */
    var data []*ssa.Global
    var bss []*ssa.Global
    for _, g := range mod.Globals {
        if g.Init != 0 {
            data = append(data, g)
        } else {
            bss = append(bss, g)
        }
    }
    if len(data) != 0 {
        asm.raw("")
        asm.dir(".section .data")
        for _, g := range data {
            asm.dir(".globl %s", g.Name)
            asm.dir(".p2align 2")
            asm.label(g.Name)
            asm.dir(".word %d", int32(g.Init))
        }
    }
    if len(bss) != 0 {
        asm.raw("")
        asm.dir(".section .bss")
        for _, g := range bss {
            asm.dir(".globl %s", g.Name)
            asm.dir(".p2align 2")
            asm.label(g.Name)
            asm.dir(".space 4")
        }
    }

    /* string literals, length-prefixed: the symbol points at the bytes and
     * the word just below holds the length */
    if len(mod.Strings) != 0 {
        asm.raw("")
        asm.dir(".section .rodata")
        for i, s := range mod.Strings {
            asm.dir(".p2align 2")
            asm.dir(".word %d", len(s))
            asm.label(fmt.Sprintf(".str.%d", i))
            asm.dir(".asciz %s", asciz(s))
        }
    }
    return asm.String()
}

type _FuncEmitter struct {
    a  *_Asm
    fn *ssa.Function

    frame   int64
    outargs int64
    spills  int64
    cells   map[int]int64 // alloca id -> slot ordinal
    saves   []ssa.Reg
}

func regname(r ssa.Reg) string {
    switch r.Kind() {
        case ssa.K_zero : return "zero"
        case ssa.K_arch : return ssa.ArchRegNames[r.Index()]
        default         : panic(fmt.Sprintf("mxc: virtual register %s at emission", r))
    }
}

func (self *_FuncEmitter) blocklabel(bb *ssa.BasicBlock) string {
    return fmt.Sprintf(".L%s_%d", self.fn.Name, bb.Id)
}

// layout measures the frame: outgoing stack arguments, spill slots, stack
// cells, saved callee-saved registers and ra, 16-byte aligned.
func (self *_FuncEmitter) layout() {
    cfg := self.fn.CFG
    self.cells = make(map[int]int64)

    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            switch p := v.(type) {
                case *ssa.IrAlloca: {
                    if _, ok := self.cells[p.Id]; !ok {
                        self.cells[p.Id] = int64(len(self.cells))
                    }
                }

                case *ssa.IrCall: {
                    if n := int64(len(p.In) - ssa.MaxRegArgs); n > self.outargs {
                        self.outargs = n
                    }
                }
            }
        }
    }

    /* callee-saved registers this function actually colored */
    for r := range cfg.ArchUsed {
        if ssa.IsCalleeSaved(r) {
            self.saves = append(self.saves, r)
        }
    }
    sort.Slice(self.saves, func(i int, j int) bool { return self.saves[i] < self.saves[j] })

    self.spills = int64(cfg.Spills)
    raw := 4 * (self.outargs + self.spills + int64(len(self.cells)) + int64(len(self.saves)) + 1)
    self.frame = (raw + 15) &^ 15
}

func (self *_FuncEmitter) spilloff(s int) int64 {
    return 4 * (self.outargs + int64(s))
}

func (self *_FuncEmitter) celloff(id int) int64 {
    return 4 * (self.outargs + self.spills + self.cells[id])
}

func (self *_FuncEmitter) saveoff(j int) int64 {
    return 4 * (self.outargs + self.spills + int64(len(self.cells)) + int64(j))
}

func (self *_FuncEmitter) raoff() int64 {
    return self.frame - 4
}

/* li materializes a 32-bit immediate, with a lui/addi pair beyond 12 bits */
func (self *_FuncEmitter) li(rd string, v int64) {
    if fitsImm12(v) {
        self.a.ins("li %s, %d", rd, v)
        return
    }
    hi, lo := splitImm32(v)
    self.a.ins("lui %s, %d", rd, hi)
    if lo != 0 {
        self.a.ins("addi %s, %s, %d", rd, rd, lo)
    }
}

/* la expands the address pseudo into %hi/%lo relocation halves */
func (self *_FuncEmitter) la(rd string, sym string) {
    self.a.ins("lui %s, %%hi(%s)", rd, sym)
    self.a.ins("addi %s, %s, %%lo(%s)", rd, rd, sym)
}

/* spmem emits a load or store at sp+off, detouring through the memory
 * scratch register when the offset leaves the 12-bit range */
func (self *_FuncEmitter) spmem(op string, reg string, off int64) {
    if fitsImm12(off) {
        self.a.ins("%s %s, %d(sp)", op, reg, off)
        return
    }
    t := regname(ssa.MemScratchReg)
    self.li(t, off)
    self.a.ins("add %s, %s, sp", t, t)
    self.a.ins("%s %s, 0(%s)", op, reg, t)
}

func (self *_FuncEmitter) emit() {
    cfg := self.fn.CFG
    self.layout()

    self.a.raw("")
    self.a.dir(".globl %s", self.fn.Name)
    self.a.dir(".p2align 1")
    self.a.dir(".type %s,@function", self.fn.Name)
    self.a.label(self.fn.Name)

    /* prologue */
    if self.frame != 0 {
        if fitsImm12(-self.frame) {
            self.a.ins("addi sp, sp, %d", -self.frame)
        } else {
            t := regname(ssa.MemScratchReg)
            self.li(t, self.frame)
            self.a.ins("sub sp, sp, %s", t)
        }
        self.spmem("sw", "ra", self.raoff())
        for j, r := range self.saves {
            self.spmem("sw", regname(r), self.saveoff(j))
        }
    }

    /* incoming arguments: register ones as one parallel copy, stack ones
     * as loads into their colored homes */
    self.params()

    /* body blocks in reverse postorder, entry first */
    order := cfg.ReversePostOrder()
    for i, bb := range order {
        var next *ssa.BasicBlock
        if i + 1 < len(order) {
            next = order[i + 1]
        }
        self.a.label(self.blocklabel(bb))
        if len(bb.Phi) != 0 {
            panic(fmt.Sprintf("mxc: phi node in %s at emission", self.fn.Name))
        }
        for _, v := range bb.Ins {
            self.instr(v)
        }
        self.term(bb, next)
    }
}

func (self *_FuncEmitter) params() {
    var moves []ssa.Move
    var loads []*ssa.IrParam

    for _, bb := range self.fn.CFG.Blocks() {
        for _, v := range bb.Ins {
            if p, ok := v.(*ssa.IrParam); ok {
                if p.Id < ssa.MaxRegArgs {
                    moves = append(moves, ssa.Move { Dst: p.R, Src: ssa.ArgReg(p.Id) })
                } else {
                    loads = append(loads, p)
                }
            }
        }
    }

    sort.Slice(moves, func(i int, j int) bool { return moves[i].Dst < moves[j].Dst })
    for _, m := range ssa.Sequentialize(moves, ssa.ScratchReg) {
        self.instr(m)
    }
    for _, p := range loads {
        self.spmem("lw", regname(p.R), self.frame + 4 * int64(p.Id - ssa.MaxRegArgs))
    }
}

func (self *_FuncEmitter) instr(v ssa.IrNode) {
    switch p := v.(type) {
        case *ssa.IrAlloca: {
            off := self.celloff(p.Id)
            if fitsImm12(off) {
                self.a.ins("addi %s, sp, %d", regname(p.R), off)
            } else {
                self.li(regname(p.R), off)
                self.a.ins("add %s, %s, sp", regname(p.R), regname(p.R))
            }
        }

        case *ssa.IrParam: {
            /* emitted ahead of the body by params() */
        }

        case *ssa.IrConstInt: {
            self.li(regname(p.R), p.V)
        }

        case *ssa.IrAddrOf: {
            self.la(regname(p.R), p.Sym)
        }

        case *ssa.IrLoad: {
            self.a.ins("lw %s, 0(%s)", regname(p.R), regname(p.Mem))
        }

        case *ssa.IrStore: {
            self.a.ins("sw %s, 0(%s)", regname(p.R), regname(p.Mem))
        }

        case *ssa.IrLEA: {
            self.a.ins("add %s, %s, %s", regname(p.R), regname(p.Mem), regname(p.Off))
        }

        case *ssa.IrCopy: {
            if p.R != p.V {
                if p.V.Kind() == ssa.K_zero {
                    self.a.ins("li %s, 0", regname(p.R))
                } else {
                    self.a.ins("mv %s, %s", regname(p.R), regname(p.V))
                }
            }
        }

        case *ssa.IrUnaryExpr: {
            rd, rs := regname(p.R), regname(p.V)
            switch p.Op {
                case ssa.IrOpNegate   : self.a.ins("sub %s, zero, %s", rd, rs)
                case ssa.IrOpInvert   : self.a.ins("xori %s, %s, -1", rd, rs)
                case ssa.IrOpLogicNot : self.a.ins("sltiu %s, %s, 1", rd, rs)
            }
        }

        case *ssa.IrBinaryExpr: {
            self.binary(p)
        }

        case *ssa.IrCall: {
            self.call(p)
        }

        case *ssa.IrSpillStore: {
            self.spmem("sw", regname(p.R), self.spilloff(p.S))
        }

        case *ssa.IrSpillReload: {
            self.spmem("lw", regname(p.R), self.spilloff(p.S))
        }

        default: {
            panic(fmt.Sprintf("mxc: cannot emit instruction %s", v))
        }
    }
}

var binaryOps = map[ssa.IrBinaryOp]string {
    ssa.IrOpAdd : "add",
    ssa.IrOpSub : "sub",
    ssa.IrOpMul : "mul",
    ssa.IrOpDiv : "div",
    ssa.IrOpRem : "rem",
    ssa.IrOpAnd : "and",
    ssa.IrOpOr  : "or",
    ssa.IrOpXor : "xor",
    ssa.IrOpShl : "sll",
    ssa.IrOpSar : "sra",
}

func (self *_FuncEmitter) binary(p *ssa.IrBinaryExpr) {
    rd, x, y := regname(p.R), regname(p.X), regname(p.Y)

    /* plain ALU operations */
    if op, ok := binaryOps[p.Op]; ok {
        self.a.ins("%s %s, %s, %s", op, rd, x, y)
        return
    }

    /* comparisons materialize a 0/1 result; rd doubles as the scratch */
    switch p.Op {
        case ssa.IrCmpEq: {
            self.a.ins("xor %s, %s, %s", rd, x, y)
            self.a.ins("sltiu %s, %s, 1", rd, rd)
        }

        case ssa.IrCmpNe: {
            self.a.ins("xor %s, %s, %s", rd, x, y)
            self.a.ins("sltu %s, zero, %s", rd, rd)
        }

        case ssa.IrCmpLt: {
            self.a.ins("slt %s, %s, %s", rd, x, y)
        }

        case ssa.IrCmpGt: {
            self.a.ins("slt %s, %s, %s", rd, y, x)
        }

        case ssa.IrCmpLe: {
            self.a.ins("slt %s, %s, %s", rd, y, x)
            self.a.ins("xori %s, %s, 1", rd, rd)
        }

        case ssa.IrCmpGe: {
            self.a.ins("slt %s, %s, %s", rd, x, y)
            self.a.ins("xori %s, %s, 1", rd, rd)
        }
    }
}

func (self *_FuncEmitter) call(p *ssa.IrCall) {
    /* stack arguments first: the shuffle below only writes a-registers */
    for i := ssa.MaxRegArgs; i < len(p.In); i++ {
        self.spmem("sw", regname(p.In[i]), 4 * int64(i - ssa.MaxRegArgs))
    }

    /* register arguments as one parallel copy */
    n := len(p.In)
    if n > ssa.MaxRegArgs {
        n = ssa.MaxRegArgs
    }
    moves := make([]ssa.Move, 0, n)
    for i := 0; i < n; i++ {
        moves = append(moves, ssa.Move { Dst: ssa.ArgReg(i), Src: p.In[i] })
    }
    for _, m := range ssa.Sequentialize(moves, ssa.ScratchReg) {
        self.instr(m)
    }

    self.a.ins("call %s", p.Fn)

    /* the result comes back in a0 */
    if p.Out.Kind() != ssa.K_zero && regname(p.Out) != "a0" {
        self.a.ins("mv %s, a0", regname(p.Out))
    }
}

func (self *_FuncEmitter) epilogue() {
    if self.frame != 0 {
        for j, r := range self.saves {
            self.spmem("lw", regname(r), self.saveoff(j))
        }
        self.spmem("lw", "ra", self.raoff())
        if fitsImm12(self.frame) {
            self.a.ins("addi sp, sp, %d", self.frame)
        } else {
            t := regname(ssa.MemScratchReg)
            self.li(t, self.frame)
            self.a.ins("add sp, sp, %s", t)
        }
    }
    self.a.ins("ret")
}

func (self *_FuncEmitter) term(bb *ssa.BasicBlock, next *ssa.BasicBlock) {
    switch t := bb.Term.(type) {
        case *ssa.IrReturn: {
            if len(t.R) != 0 {
                r := t.R[0]
                if r.Kind() == ssa.K_zero {
                    self.a.ins("li a0, 0")
                } else if regname(r) != "a0" {
                    self.a.ins("mv a0, %s", regname(r))
                }
            }
            self.epilogue()
        }

        case *ssa.IrSwitch: {
            /* unconditional jump, elided on fallthrough */
            if len(t.Br) == 0 {
                if t.Ln != next {
                    self.a.ins("j %s", self.blocklabel(t.Ln))
                }
                return
            }

            /* the common two-way branch tests against zero */
            if len(t.Br) == 1 {
                if dst, ok := t.Br[1]; ok {
                    self.a.ins("bnez %s, %s", regname(t.V), self.blocklabel(dst))
                    if t.Ln != next {
                        self.a.ins("j %s", self.blocklabel(t.Ln))
                    }
                    return
                }
            }

            /* general dispatch compares case by case */
            sc := regname(ssa.ScratchReg)
            for it := t.Successors(); it.Next(); {
                if v, ok := it.Value(); ok {
                    self.li(sc, v)
                    self.a.ins("beq %s, %s, %s", regname(t.V), sc, self.blocklabel(it.Block()))
                }
            }
            if t.Ln != next {
                self.a.ins("j %s", self.blocklabel(t.Ln))
            }
        }

        default: {
            panic(fmt.Sprintf("mxc: cannot emit terminator %s", bb.Term))
        }
    }
}
