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

package ssa

import (
    `fmt`

    `github.com/mxlang/mxc/internal/mx/ast`
    `github.com/mxlang/mxc/internal/mx/sema`
)

// InitFunc is the synthetic function running non-constant global
// initializers; main calls it first when it exists.
const InitFunc = "__init"

// ArrayAllocFunc is the runtime helper taking an element count and
// returning a length-prefixed heap array.
const ArrayAllocFunc = "__array_alloc"

type _Builder struct {
    mod   *Module
    info  *sema.Info

    /* per-function state */
    cfg    *CFG
    fn     *sema.Func
    cur    *BasicBlock
    entry  *BasicBlock
    this   Reg
    vars   map[*sema.Var]Reg
    breaks []*BasicBlock
    conts  []*BasicBlock
    cells  int
}

// Build lowers a checked program into a module of memory-cell form IR.
func Build(prog *ast.Program, info *sema.Info) *Module {
    b := &_Builder {
        mod  : NewModule(),
        info : info,
    }
    return b.build(prog)
}

func (self *_Builder) build(prog *ast.Program) *Module {
    /* globals: constant scalars get a static image, the rest go to __init */
    static := make(map[*sema.Var]int64)
    for _, gi := range self.info.GlobalInit {
        if v, ok := constvalue(gi.X); ok {
            static[gi.V] = v
        }
    }
    for _, g := range self.info.Globals {
        self.mod.Globals = append(self.mod.Globals, &Global {
            Name: g.Name,
            Init: static[g],
        })
    }

    /* synthesize __init for the dynamic initializers */
    hasinit := false
    for _, gi := range self.info.GlobalInit {
        if _, ok := static[gi.V]; !ok {
            hasinit = true
            break
        }
    }
    if hasinit {
        self.mod.Funcs = append(self.mod.Funcs, self.buildInit(static))
    }

    /* all declared functions, methods and constructors */
    for _, d := range prog.Decls {
        switch dd := d.(type) {
            case *ast.FuncDecl: {
                fn := self.info.Funcs[dd.Name]
                self.mod.Funcs = append(self.mod.Funcs, self.buildFunc(fn, dd.Name == "main" && hasinit))
            }

            case *ast.ClassDecl: {
                cls := self.info.Classes[dd.Name]
                for _, md := range dd.Methods {
                    self.mod.Funcs = append(self.mod.Funcs, self.buildFunc(cls.Methods[md.Name], false))
                }
                if cls.Ctor != nil {
                    self.mod.Funcs = append(self.mod.Funcs, self.buildFunc(cls.Ctor, false))
                }
            }
        }
    }
    return self.mod
}

func constvalue(x ast.Expr) (int64, bool) {
    switch xx := x.(type) {
        case *ast.IntLit: {
            return xx.V, true
        }

        case *ast.BoolLit: {
            if xx.V {
                return 1, true
            }
            return 0, true
        }

        default: {
            return 0, false
        }
    }
}

func (self *_Builder) enter(fn *sema.Func) {
    self.cfg = newCFG()
    self.fn = fn
    self.vars = make(map[*sema.Var]Reg)
    self.breaks = self.breaks[:0]
    self.conts = self.conts[:0]
    self.cells = 0
    self.this = Rz

    /* the entry block holds allocas only and falls through to the body */
    self.entry = self.cfg.CreateBlock()
    self.cur = self.cfg.CreateBlock()
    self.entry.termBranch(self.cur)
    self.cfg.Root = self.entry
}

func (self *_Builder) finish(name string, nargs int) *Function {
    /* fall off the end: return the zero of the result type */
    if self.cur.Term == nil {
        if self.fn != nil && self.fn.Ret != sema.TVoid {
            self.cur.termReturn(Rz)
        } else {
            self.cur.termReturn()
        }
    }

    cfg := self.cfg
    cfg.Rebuild()
    self.cfg = nil
    self.fn = nil
    return &Function { Name: name, Nargs: nargs, CFG: cfg }
}

func (self *_Builder) buildInit(static map[*sema.Var]int64) *Function {
    self.enter(nil)
    for _, gi := range self.info.GlobalInit {
        if _, ok := static[gi.V]; ok {
            continue
        }
        v := self.expr(gi.X)
        p := self.cfg.CreateRegister(true)
        self.cur.addInstr(&IrAddrOf { R: p, Sym: gi.V.Name })
        self.cur.addInstr(&IrStore { R: v, Mem: p })
    }
    self.cur.termReturn()
    return self.finish(InitFunc, 0)
}

func (self *_Builder) buildFunc(fn *sema.Func, callinit bool) *Function {
    self.enter(fn)
    recv := 0

    /* the receiver is argument zero of methods and constructors */
    if fn.Class != nil {
        recv = 1
        self.this = self.cfg.CreateRegister(true)
        self.cur.addInstr(&IrParam { R: self.this, Id: 0 })
    }

    /* parameters: a cell each, initialized from the incoming argument */
    for i, p := range fn.Params {
        t := self.cfg.CreateRegister(p.Type.IsRef())
        self.cur.addInstr(&IrParam { R: t, Id: i + recv })
        cell := self.newCell(p.Name)
        self.vars[p] = cell
        self.cur.addInstr(&IrStore { R: t, Mem: cell })
    }

    /* main runs the global initializers before anything else */
    if callinit {
        self.cur.addInstr(&IrCall { Fn: InitFunc, Out: Rz })
    }

    self.block(fn.Decl.Body)
    return self.finish(fn.Mangled, len(fn.Params) + recv)
}

// newCell reserves a stack cell in the entry block.
func (self *_Builder) newCell(name string) Reg {
    r := self.cfg.CreateRegister(true)
    self.entry.addInstr(&IrAlloca { R: r, Id: self.cells, Name: name })
    self.cells++
    return r
}

func (self *_Builder) jumpTo(bb *BasicBlock) {
    if self.cur.Term == nil {
        self.cur.termBranch(bb)
    }
    self.cur = bb
}

/* ------------------- statements ------------------- */

func (self *_Builder) block(b *ast.Block) {
    for _, s := range b.Stmts {
        self.stmt(s)
    }
}

func (self *_Builder) stmt(s ast.Stmt) {
    switch ss := s.(type) {
        case *ast.Block    : self.block(ss)
        case *ast.ExprStmt : self.expr(ss.X)
        case *ast.DeclStmt : self.localdecl(ss.D)
        case *ast.If       : self.ifstmt(ss)
        case *ast.While    : self.whilestmt(ss)
        case *ast.For      : self.forstmt(ss)
        case *ast.Return   : self.retstmt(ss)

        case *ast.Break: {
            self.cur.termBranch(self.breaks[len(self.breaks) - 1])
            self.cur = self.cfg.CreateBlock()
        }

        case *ast.Continue: {
            self.cur.termBranch(self.conts[len(self.conts) - 1])
            self.cur = self.cfg.CreateBlock()
        }

        default: {
            panic(fmt.Sprintf("mxc: cannot lower statement %T", s))
        }
    }
}

func (self *_Builder) localdecl(d *ast.VarDecl) {
    for i := range d.Items {
        item := &d.Items[i]
        v := self.info.VarOf[item]
        cell := self.newCell(v.Name)
        self.vars[v] = cell
        if item.Init != nil {
            r := self.expr(item.Init)
            self.cur.addInstr(&IrStore { R: r, Mem: cell })
        }
    }
}

func (self *_Builder) ifstmt(s *ast.If) {
    cond := self.expr(s.Cond)
    then := self.cfg.CreateBlock()
    done := self.cfg.CreateBlock()
    alt := done

    if s.Else != nil {
        alt = self.cfg.CreateBlock()
    }
    self.cur.termCondition(cond, then, alt)

    /* then branch */
    self.cur = then
    self.stmt(s.Then)
    self.jumpTo(done)

    /* else branch */
    if s.Else != nil {
        self.cur = alt
        self.stmt(s.Else)
        self.jumpTo(done)
    }
    self.cur = done
}

func (self *_Builder) whilestmt(s *ast.While) {
    header := self.cfg.CreateBlock()
    body := self.cfg.CreateBlock()
    exit := self.cfg.CreateBlock()

    /* the header re-evaluates the condition every iteration */
    self.jumpTo(header)
    cond := self.expr(s.Cond)
    self.cur.termCondition(cond, body, exit)

    self.breaks = append(self.breaks, exit)
    self.conts = append(self.conts, header)

    self.cur = body
    self.stmt(s.Body)
    self.jumpTo(header)

    self.breaks = self.breaks[:len(self.breaks) - 1]
    self.conts = self.conts[:len(self.conts) - 1]
    self.cur = exit
}

func (self *_Builder) forstmt(s *ast.For) {
    if s.Init != nil {
        self.stmt(s.Init)
    }

    header := self.cfg.CreateBlock()
    body := self.cfg.CreateBlock()
    step := self.cfg.CreateBlock()
    exit := self.cfg.CreateBlock()

    /* condition, defaulting to "forever" */
    self.jumpTo(header)
    if s.Cond != nil {
        cond := self.expr(s.Cond)
        self.cur.termCondition(cond, body, exit)
    } else {
        self.cur.termBranch(body)
    }

    self.breaks = append(self.breaks, exit)
    self.conts = append(self.conts, step)

    self.cur = body
    self.stmt(s.Body)
    self.jumpTo(step)

    if s.Step != nil {
        self.expr(s.Step)
    }
    self.jumpTo(header)

    self.breaks = self.breaks[:len(self.breaks) - 1]
    self.conts = self.conts[:len(self.conts) - 1]
    self.cur = exit
}

func (self *_Builder) retstmt(s *ast.Return) {
    if s.X != nil {
        r := self.expr(s.X)
        self.cur.termReturn(r)
    } else {
        self.cur.termReturn()
    }
    self.cur = self.cfg.CreateBlock()
}

/* ------------------- expressions ------------------- */

func (self *_Builder) typeat(x ast.Expr) *sema.Type {
    t, ok := self.info.Types[x]
    if !ok {
        panic(fmt.Sprintf("mxc: untyped expression %T", x))
    }
    return t
}

func (self *_Builder) constint(v int64) Reg {
    r := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrConstInt { R: r, V: v })
    return r
}

// expr lowers an expression to its value register.
func (self *_Builder) expr(x ast.Expr) Reg {
    switch xx := x.(type) {
        case *ast.IntLit: {
            return self.constint(xx.V)
        }

        case *ast.BoolLit: {
            if xx.V {
                return self.constint(1)
            }
            return self.constint(0)
        }

        case *ast.NullLit: {
            return Pn
        }

        case *ast.ThisLit: {
            return self.this
        }

        case *ast.StrLit: {
            sym := self.mod.InternString(xx.V)
            r := self.cfg.CreateRegister(true)
            self.cur.addInstr(&IrAddrOf { R: r, Sym: sym })
            return r
        }

        case *ast.Ident: {
            p := self.addr(xx)
            r := self.cfg.CreateRegister(self.typeat(xx).IsRef())
            self.cur.addInstr(&IrLoad { R: r, Mem: p })
            return r
        }

        case *ast.Member: {
            p := self.addr(xx)
            r := self.cfg.CreateRegister(self.typeat(xx).IsRef())
            self.cur.addInstr(&IrLoad { R: r, Mem: p })
            return r
        }

        case *ast.Index: {
            p := self.addr(xx)
            r := self.cfg.CreateRegister(self.typeat(xx).IsRef())
            self.cur.addInstr(&IrLoad { R: r, Mem: p })
            return r
        }

        case *ast.Assign: {
            p := self.addr(xx.L)
            v := self.expr(xx.R)
            self.cur.addInstr(&IrStore { R: v, Mem: p })
            return v
        }

        case *ast.Unary   : return self.unary(xx)
        case *ast.Binary  : return self.binary(xx)
        case *ast.Ternary : return self.ternary(xx)
        case *ast.Call    : return self.call(xx)
        case *ast.New     : return self.newexpr(xx)
    }
    panic(fmt.Sprintf("mxc: cannot lower expression %T", x))
}

func (self *_Builder) unary(x *ast.Unary) Reg {
    switch x.Op {
        case ast.UnNeg, ast.UnInv, ast.UnNot: {
            var op IrUnaryOp
            switch x.Op {
                case ast.UnNeg : op = IrOpNegate
                case ast.UnInv : op = IrOpInvert
                default        : op = IrOpLogicNot
            }
            v := self.expr(x.X)
            r := self.cfg.CreateRegister(false)
            self.cur.addInstr(&IrUnaryExpr { R: r, V: v, Op: op })
            return r
        }

        default: {
            /* ++/--: load, adjust, store back */
            p := self.addr(x.X)
            old := self.cfg.CreateRegister(false)
            self.cur.addInstr(&IrLoad { R: old, Mem: p })

            delta := int64(1)
            if x.Op == ast.UnPreDec || x.Op == ast.UnPostDec {
                delta = -1
            }
            one := self.constint(delta)
            neu := self.cfg.CreateRegister(false)
            self.cur.addInstr(&IrBinaryExpr { R: neu, X: old, Y: one, Op: IrOpAdd })
            self.cur.addInstr(&IrStore { R: neu, Mem: p })

            if x.Op == ast.UnPostInc || x.Op == ast.UnPostDec {
                return old
            }
            return neu
        }
    }
}

var binops = map[ast.BinOp]IrBinaryOp {
    ast.OpAdd : IrOpAdd,
    ast.OpSub : IrOpSub,
    ast.OpMul : IrOpMul,
    ast.OpDiv : IrOpDiv,
    ast.OpRem : IrOpRem,
    ast.OpAnd : IrOpAnd,
    ast.OpOr  : IrOpOr,
    ast.OpXor : IrOpXor,
    ast.OpShl : IrOpShl,
    ast.OpShr : IrOpSar,
    ast.OpLt  : IrCmpLt,
    ast.OpGt  : IrCmpGt,
    ast.OpLe  : IrCmpLe,
    ast.OpGe  : IrCmpGe,
    ast.OpEq  : IrCmpEq,
    ast.OpNe  : IrCmpNe,
}

var strcmps = map[ast.BinOp]string {
    ast.OpEq : "string.eq",
    ast.OpNe : "string.ne",
    ast.OpLt : "string.lt",
    ast.OpLe : "string.le",
    ast.OpGt : "string.gt",
    ast.OpGe : "string.ge",
}

func (self *_Builder) binary(x *ast.Binary) Reg {
    /* short-circuit operators become control flow over a result cell */
    if x.Op == ast.OpLAnd || x.Op == ast.OpLOr {
        return self.shortcircuit(x)
    }

    /* string operators lower to runtime calls */
    if self.typeat(x.X) == sema.TString {
        lhs := self.expr(x.X)
        rhs := self.expr(x.Y)
        var fn string
        var ptr bool
        if x.Op == ast.OpAdd {
            fn, ptr = "string.add", true
        } else {
            fn = strcmps[x.Op]
        }
        out := self.cfg.CreateRegister(ptr)
        self.cur.addInstr(&IrCall { Fn: fn, In: []Reg { lhs, rhs }, Out: out })
        return out
    }

    lhs := self.expr(x.X)
    rhs := self.expr(x.Y)
    r := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrBinaryExpr { R: r, X: lhs, Y: rhs, Op: binops[x.Op] })
    return r
}

func (self *_Builder) shortcircuit(x *ast.Binary) Reg {
    cell := self.newCell("$cond")
    rest := self.cfg.CreateBlock()
    done := self.cfg.CreateBlock()

    /* the left value decides whether the right side runs at all */
    lhs := self.expr(x.X)
    self.cur.addInstr(&IrStore { R: lhs, Mem: cell })
    if x.Op == ast.OpLAnd {
        self.cur.termCondition(lhs, rest, done)
    } else {
        self.cur.termCondition(lhs, done, rest)
    }

    self.cur = rest
    rhs := self.expr(x.Y)
    self.cur.addInstr(&IrStore { R: rhs, Mem: cell })
    self.jumpTo(done)

    r := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrLoad { R: r, Mem: cell })
    return r
}

func (self *_Builder) ternary(x *ast.Ternary) Reg {
    ref := self.typeat(x).IsRef()
    cell := self.newCell("$sel")
    then := self.cfg.CreateBlock()
    alt := self.cfg.CreateBlock()
    done := self.cfg.CreateBlock()

    cond := self.expr(x.C)
    self.cur.termCondition(cond, then, alt)

    self.cur = then
    v := self.expr(x.X)
    self.cur.addInstr(&IrStore { R: v, Mem: cell })
    self.jumpTo(done)

    self.cur = alt
    w := self.expr(x.Y)
    self.cur.addInstr(&IrStore { R: w, Mem: cell })
    self.jumpTo(done)

    r := self.cfg.CreateRegister(ref)
    self.cur.addInstr(&IrLoad { R: r, Mem: cell })
    return r
}

func (self *_Builder) call(x *ast.Call) Reg {
    fn := self.info.Calls[x]

    /* array .size() reads the length word just below the data */
    if fn.Mangled == "__array_size" {
        arr := self.expr(x.Fn.(*ast.Member).X)
        off := self.constint(-4)
        p := self.cfg.CreateRegister(true)
        self.cur.addInstr(&IrLEA { R: p, Mem: arr, Off: off })
        r := self.cfg.CreateRegister(false)
        self.cur.addInstr(&IrLoad { R: r, Mem: p })
        return r
    }

    var in []Reg

    /* receiver: explicit member base, or the enclosing this */
    switch fx := x.Fn.(type) {
        case *ast.Member: {
            in = append(in, self.expr(fx.X))
        }

        default: {
            if fn.Class != nil {
                in = append(in, self.this)
            }
        }
    }

    for _, a := range x.Args {
        in = append(in, self.expr(a))
    }

    out := Rz
    if fn.Ret != sema.TVoid {
        out = self.cfg.CreateRegister(fn.Ret.IsRef())
    }
    self.cur.addInstr(&IrCall { Fn: fn.Mangled, In: in, Out: out })
    return out
}

func (self *_Builder) newexpr(x *ast.New) Reg {
    t := self.typeat(x)

    /* array allocation */
    if t.Kind == sema.KArray {
        sizes := make([]Reg, 0, len(x.Sizes))
        for _, n := range x.Sizes {
            sizes = append(sizes, self.expr(n))
        }
        return self.newarray(sizes)
    }

    /* object allocation */
    cls := self.info.Classes[t.Class]
    sz := self.constint(cls.Size())
    mem := self.cfg.CreateRegister(true)
    self.cur.addInstr(&IrCall { Fn: "malloc", In: []Reg { sz }, Out: mem })

    /* run the constructor on the fresh object */
    if cls.Ctor != nil {
        in := []Reg { mem }
        for _, a := range x.Args {
            in = append(in, self.expr(a))
        }
        self.cur.addInstr(&IrCall { Fn: cls.Ctor.Mangled, In: in, Out: Rz })
    }
    return mem
}

// newarray allocates one dimension and recurses for the inner ones with a
// fill loop over cells; Mem2Reg later promotes the loop counter.
func (self *_Builder) newarray(sizes []Reg) Reg {
    n := sizes[0]
    arr := self.cfg.CreateRegister(true)
    self.cur.addInstr(&IrCall { Fn: ArrayAllocFunc, In: []Reg { n }, Out: arr })

    /* innermost dimension: elements start zeroed */
    if len(sizes) == 1 {
        return arr
    }

    /* count cell for the fill loop */
    idx := self.newCell("$idx")
    zero := self.constint(0)
    self.cur.addInstr(&IrStore { R: zero, Mem: idx })

    header := self.cfg.CreateBlock()
    body := self.cfg.CreateBlock()
    exit := self.cfg.CreateBlock()

    /* while (i < n) */
    self.jumpTo(header)
    i0 := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrLoad { R: i0, Mem: idx })
    cc := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrBinaryExpr { R: cc, X: i0, Y: n, Op: IrCmpLt })
    self.cur.termCondition(cc, body, exit)

    /* arr[i] = <inner dimensions> */
    self.cur = body
    inner := self.newarray(sizes[1:])
    i1 := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrLoad { R: i1, Mem: idx })
    two := self.constint(2)
    off := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrBinaryExpr { R: off, X: i1, Y: two, Op: IrOpShl })
    slot := self.cfg.CreateRegister(true)
    self.cur.addInstr(&IrLEA { R: slot, Mem: arr, Off: off })
    self.cur.addInstr(&IrStore { R: inner, Mem: slot })

    /* i++ */
    one := self.constint(1)
    i2 := self.cfg.CreateRegister(false)
    self.cur.addInstr(&IrBinaryExpr { R: i2, X: i1, Y: one, Op: IrOpAdd })
    self.cur.addInstr(&IrStore { R: i2, Mem: idx })
    self.jumpTo(header)

    self.cur = exit
    return arr
}

// addr lowers an lvalue to the address of its cell.
func (self *_Builder) addr(x ast.Expr) Reg {
    switch xx := x.(type) {
        case *ast.Ident: {
            /* local or global variable */
            if v := self.info.Uses[xx]; v != nil {
                if !v.Global {
                    return self.vars[v]
                }
                r := self.cfg.CreateRegister(true)
                self.cur.addInstr(&IrAddrOf { R: r, Sym: v.Name })
                return r
            }

            /* unqualified field of the enclosing class */
            f := self.info.FieldUses[xx]
            return self.fieldaddr(self.this, f)
        }

        case *ast.Member: {
            base := self.expr(xx.X)
            return self.fieldaddr(base, self.info.Members[xx])
        }

        case *ast.Index: {
            base := self.expr(xx.X)
            idx := self.expr(xx.I)
            two := self.constint(2)
            off := self.cfg.CreateRegister(false)
            self.cur.addInstr(&IrBinaryExpr { R: off, X: idx, Y: two, Op: IrOpShl })
            p := self.cfg.CreateRegister(true)
            self.cur.addInstr(&IrLEA { R: p, Mem: base, Off: off })
            return p
        }
    }
    panic(fmt.Sprintf("mxc: not an lvalue: %T", x))
}

func (self *_Builder) fieldaddr(base Reg, f *sema.Field) Reg {
    off := self.constint(int64(f.Ord) * 4)
    p := self.cfg.CreateRegister(true)
    self.cur.addInstr(&IrLEA { R: p, Mem: base, Off: off })
    return p
}
