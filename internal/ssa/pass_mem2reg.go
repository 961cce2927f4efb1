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
    `sort`

    `github.com/oleiade/lane`
)

// _AllocChecker classifies stack cells: a cell is promotable iff its address
// is only ever the direct operand of a load or a store. Any other use makes
// the address escape.
type _AllocChecker struct {
    cells map[Reg]*IrAlloca
    ptrs  map[Reg]bool // pointerness of the cell's value
}

func newAllocChecker() *_AllocChecker {
    return &_AllocChecker {
        cells: make(map[Reg]*IrAlloca),
        ptrs:  make(map[Reg]bool),
    }
}

func (self *_AllocChecker) escape(r Reg) {
    delete(self.cells, r)
}

func (self *_AllocChecker) check(cfg *CFG) {
    /* collect every cell */
    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            if p, ok := v.(*IrAlloca); ok {
                self.cells[p.R] = p
            }
        }
    }

    /* find the escaping ones */
    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            switch p := v.(type) {
                case *IrAlloca: {
                    /* the definition itself is not a use */
                }

                case *IrLoad: {
                    if _, ok := self.cells[p.Mem]; ok {
                        self.ptrs[p.Mem] = p.R.Ptr()
                    }
                }

                case *IrStore: {
                    /* storing the address itself escapes the cell */
                    self.escape(p.R)
                    if _, ok := self.cells[p.Mem]; ok {
                        self.ptrs[p.Mem] = p.R.Ptr()
                    }
                }

                default: {
                    if u, ok := v.(IrUsages); ok {
                        for _, r := range u.Usages() {
                            self.escape(*r)
                        }
                    }
                }
            }
        }

        /* φ nodes and terminators also count as uses */
        for _, phi := range bb.Phi {
            for _, r := range phi.Usages() {
                self.escape(*r)
            }
        }
        if u, ok := bb.Term.(IrUsages); ok {
            for _, r := range u.Usages() {
                self.escape(*r)
            }
        }
    }
}

// Mem2Reg promotes non-escaping stack cells to SSA virtual registers,
// inserting φ nodes on the iterated dominance frontier of the stores and
// renaming loads along the dominator tree.
type Mem2Reg struct{}

func (self Mem2Reg) Apply(cfg *CFG) {
    ac := newAllocChecker()
    ac.check(cfg)

    /* nothing to promote */
    if len(ac.cells) == 0 {
        return
    }

    /* deterministic cell order */
    cells := make([]Reg, 0, len(ac.cells))
    for r := range ac.cells {
        cells = append(cells, r)
    }
    sort.Slice(cells, func(i int, j int) bool { return cells[i] < cells[j] })

    /* blocks containing a store to each cell */
    defs := make(map[Reg]map[int]*BasicBlock)
    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            if p, ok := v.(*IrStore); ok {
                if _, prom := ac.cells[p.Mem]; prom {
                    if defs[p.Mem] == nil {
                        defs[p.Mem] = make(map[int]*BasicBlock)
                    }
                    defs[p.Mem][bb.Id] = bb
                }
            }
        }
    }

    /* place φ nodes on the iterated dominance frontier of every cell */
    phicell := make(map[*IrPhi]Reg)
    for _, c := range cells {
        q := lane.NewQueue()
        has := make(map[int]bool)

        /* seed with the defining blocks, in block order */
        bbs := make([]*BasicBlock, 0, len(defs[c]))
        for _, bb := range defs[c] {
            bbs = append(bbs, bb)
        }
        sort.Slice(bbs, func(i int, j int) bool { return bbs[i].Id < bbs[j].Id })
        for _, bb := range bbs {
            q.Enqueue(bb)
        }

        /* iterate to the fixed point */
        for !q.Empty() {
            n := q.Dequeue().(*BasicBlock)
            for _, y := range cfg.DominanceFrontier[n.Id] {
                if !has[y.Id] {
                    has[y.Id] = true
                    phi := &IrPhi {
                        R: cfg.CreateRegister(ac.ptrs[c]),
                        V: make(map[*BasicBlock]*Reg),
                    }
                    y.Phi = append(y.Phi, phi)
                    phicell[phi] = c

                    /* a φ is itself a definition of the cell */
                    if _, ok := defs[c][y.Id]; !ok {
                        q.Enqueue(y)
                    }
                }
            }
        }
    }

    /* rename along the dominator tree */
    rn := &_CellRenamer {
        cfg     : cfg,
        cells   : ac.cells,
        ptrs    : ac.ptrs,
        phicell : phicell,
        stack   : make(map[Reg][]Reg),
        subst   : make(map[Reg]Reg),
    }
    rn.visit(cfg.Root)
}

type _CellRenamer struct {
    cfg     *CFG
    cells   map[Reg]*IrAlloca
    ptrs    map[Reg]bool
    phicell map[*IrPhi]Reg
    stack   map[Reg][]Reg
    subst   map[Reg]Reg
}

func (self *_CellRenamer) top(c Reg, ptr bool) Reg {
    if s := self.stack[c]; len(s) != 0 {
        return s[len(s) - 1]
    }

    /* a load before any store reads the zero value */
    if ptr {
        return Pn
    } else {
        return Rz
    }
}

func (self *_CellRenamer) push(c Reg, v Reg) {
    self.stack[c] = append(self.stack[c], v)
}

func (self *_CellRenamer) rewrite(rr []*Reg) {
    for _, r := range rr {
        if v, ok := self.subst[*r]; ok {
            *r = v
        }
    }
}

func (self *_CellRenamer) visit(bb *BasicBlock) {
    var pushed []Reg

    /* φ results become the current definition of their cell */
    for _, phi := range bb.Phi {
        if c, ok := self.phicell[phi]; ok {
            self.push(c, phi.R)
            pushed = append(pushed, c)
        }
    }

    /* walk the body, dropping promoted memory traffic */
    ins := bb.Ins
    bb.Ins = bb.Ins[:0]
    for _, v := range ins {
        if u, ok := v.(IrUsages); ok {
            self.rewrite(u.Usages())
        }
        switch p := v.(type) {
            case *IrAlloca: {
                if _, prom := self.cells[p.R]; prom {
                    continue
                }
            }

            case *IrLoad: {
                if _, prom := self.cells[p.Mem]; prom {
                    self.subst[p.R] = self.top(p.Mem, p.R.Ptr())
                    continue
                }
            }

            case *IrStore: {
                if _, prom := self.cells[p.Mem]; prom {
                    self.push(p.Mem, p.R)
                    pushed = append(pushed, p.Mem)
                    continue
                }
            }
        }
        bb.Ins = append(bb.Ins, v)
    }

    /* rename the terminator */
    if u, ok := bb.Term.(IrUsages); ok {
        self.rewrite(u.Usages())
    }

    /* fill in the φ operands of every successor */
    for it := bb.Term.Successors(); it.Next(); {
        for _, phi := range it.Block().Phi {
            if c, ok := self.phicell[phi]; ok {
                phi.V[bb] = regnewref(self.top(c, self.ptrs[c]))
            }
        }
    }

    /* descend the dominator tree */
    for _, p := range self.cfg.DominatorOf[bb.Id] {
        self.visit(p)
    }

    /* pop this block's definitions */
    for i := len(pushed) - 1; i >= 0; i-- {
        c := pushed[i]
        self.stack[c] = self.stack[c][:len(self.stack[c]) - 1]
    }
}
