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
    `os`
    `sort`

    `github.com/davecgh/go-spew/spew`
    `github.com/oleiade/lane`
    `gonum.org/v1/gonum/graph/simple`
)

// _MaxSpillRounds bounds the spill-and-recolor loop; in practice one or two
// rounds suffice.
const _MaxSpillRounds = 10

// DumpLiveness and DumpColors route allocator internals to stderr when the
// driver asks for them.
var (
    DumpLiveness = false
    DumpColors   = false
)

type _IGraph struct {
    g   *simple.UndirectedGraph
    adj map[Reg]_RegSet
    use map[Reg]int
}

func newIGraph() *_IGraph {
    return &_IGraph {
        g   : simple.NewUndirectedGraph(),
        adj : make(map[Reg]_RegSet),
        use : make(map[Reg]int),
    }
}

func (self *_IGraph) node(r Reg) {
    if self.g.Node(int64(r)) == nil {
        self.g.AddNode(simple.Node(int64(r)))
    }
    if self.adj[r] == nil {
        self.adj[r] = make(_RegSet)
    }
}

func (self *_IGraph) edge(a Reg, b Reg) {
    if a == b || a.Kind() == K_zero || b.Kind() == K_zero {
        return
    }
    self.node(a)
    self.node(b)
    if !self.g.HasEdgeBetween(int64(a), int64(b)) {
        self.g.SetEdge(simple.Edge { F: simple.Node(int64(a)), T: simple.Node(int64(b)) })
        self.adj[a].add(b)
        self.adj[b].add(a)
    }
}

func (self *_IGraph) count(rr []*Reg) {
    for _, r := range rr {
        if r.Kind() == K_norm {
            self.use[*r]++
        }
    }
}

// RegAlloc colors every virtual register with a physical one by iterated
// graph coloring, spilling to stack slots until the graph is colorable.
type RegAlloc struct{}

func (self RegAlloc) Apply(cfg *CFG) {
    for round := 0; ; round++ {
        if round >= _MaxSpillRounds {
            panic(&ShapeError { Reason: fmt.Sprintf("register allocation did not converge after %d rounds", round) })
        }

        /* dead definitions would inflate the graph for nothing */
        TDCE{}.Apply(cfg)
        lv := ComputeLiveness(cfg)

        if DumpLiveness {
            spew.Config.SortKeys = true
            spew.Fdump(os.Stderr, lv.In, lv.Out)
        }

        /* Phase 1: Build the interference graph */
        ig := self.buildGraph(cfg, lv)

        /* Phase 2: Simplify, with spill candidates by use density */
        stack, nodes := self.simplify(ig)

        /* Phase 3: Select colors in reverse removal order */
        colors, spills := self.selectColors(ig, stack, nodes)

        /* Phase 4: Success, rewrite the virtual registers in place */
        if len(spills) == 0 {
            if DumpColors {
                spew.Config.SortKeys = true
                spew.Fdump(os.Stderr, colors)
            }
            self.assign(cfg, colors)
            return
        }

        /* Phase 5: Spill and retry */
        for _, r := range spills {
            self.spill(cfg, r)
        }
    }
}

func (self RegAlloc) buildGraph(cfg *CFG, lv *Liveness) *_IGraph {
    ig := newIGraph()

    for _, bb := range cfg.Blocks() {
        live := lv.Out[bb.Id].clone()

        /* scan the block backwards, keeping the live set current */
        for i := len(bb.Ins) - 1; i >= 0; i-- {
            v := bb.Ins[i]

            /* definitions interfere with everything live past them, except
             * the source of the very copy that defines them */
            if d, ok := v.(IrDefinitions); ok {
                var copysrc Reg = Rz
                if cp, ok := v.(*IrCopy); ok {
                    copysrc = cp.V
                }
                for _, r := range d.Definitions() {
                    if r.Kind() == K_norm {
                        ig.node(*r)
                        ig.count([]*Reg { r })
                        for l := range live {
                            if l != copysrc {
                                ig.edge(*r, l)
                            }
                        }
                    }
                    live.remove(*r)
                }
            }

            /* calls clobber every caller-saved register: values alive across
             * the call must land in callee-saved ones */
            if _, ok := v.(*IrCall); ok {
                for l := range live {
                    if l.Kind() == K_norm {
                        for _, cr := range CallerSavedRegs {
                            ig.edge(l, cr)
                        }
                    }
                }
            }

            if u, ok := v.(IrUsages); ok {
                uses := u.Usages()
                ig.count(uses)
                live.addp(uses)
            }
        }

        /* the terminator reads last; its uses were already folded into
         * liveness, but make sure isolated uses have nodes */
        if u, ok := bb.Term.(IrUsages); ok {
            ig.count(u.Usages())
        }

        /* φ results are parallel definitions at the block head: they
         * interfere with the head live set and with each other */
        head := lv.In[bb.Id]
        for _, phi := range bb.Phi {
            if phi.R.Kind() != K_norm {
                continue
            }
            ig.node(phi.R)
            ig.count([]*Reg { &phi.R })
            for l := range head {
                ig.edge(phi.R, l)
            }
            for _, other := range bb.Phi {
                if other != phi {
                    ig.edge(phi.R, other.R)
                }
            }
        }
    }
    return ig
}

func (self RegAlloc) simplify(ig *_IGraph) (*lane.Stack, _RegSet) {
    k := len(Colors)
    st := lane.NewStack()

    /* collect the virtual nodes and their degrees */
    deg := make(map[Reg]int)
    rem := make(_RegSet)
    for it := ig.g.Nodes(); it.Next(); {
        r := Reg(uint64(it.Node().ID()))
        if r.Kind() == K_norm {
            rem.add(r)
            deg[r] = len(ig.adj[r])
        }
    }

    remove := func(r Reg) {
        st.Push(r)
        rem.remove(r)
        for n := range ig.adj[r] {
            if rem.contains(n) {
                deg[n]--
            }
        }
    }

    for len(rem) != 0 {
        /* Step 1: keep removing trivially colorable nodes */
        found := true
        for found {
            found = false
            for _, r := range rem.toslice() {
                if deg[r] < k {
                    found = true
                    remove(r)
                }
            }
        }
        if len(rem) == 0 {
            break
        }

        /* Step 2: everything left is high-degree, pick the potential spill
         * with the lowest use density */
        var pick Reg
        best := -1.0
        for _, r := range rem.toslice() {
            score := float64(ig.use[r]) / float64(deg[r] + 1)
            if best < 0 || score < best {
                best = score
                pick = r
            }
        }
        remove(pick)
    }
    return st, rem
}

func (self RegAlloc) selectColors(ig *_IGraph, st *lane.Stack, _ _RegSet) (map[Reg]Reg, []Reg) {
    var spills []Reg
    colors := make(map[Reg]Reg)

    for !st.Empty() {
        r := st.Pop().(Reg)
        used := make(_RegSet)

        /* colors taken by the already-colored and precolored neighbors */
        for n := range ig.adj[r] {
            if n.Kind() == K_arch {
                used.add(n)
            } else if c, ok := colors[n]; ok {
                used.add(c)
            }
        }

        /* lowest-numbered free color wins */
        var c Reg
        var ok bool
        for _, v := range Colors {
            if !used.contains(v) {
                c, ok = v, true
                break
            }
        }

        if !ok {
            spills = append(spills, r)
        } else {
            colors[r] = c
        }
    }

    sort.Slice(spills, func(i int, j int) bool { return spills[i] < spills[j] })
    return colors, spills
}

func (self RegAlloc) assign(cfg *CFG, colors map[Reg]Reg) {
    paint := func(rr []*Reg) {
        for _, r := range rr {
            if r.Kind() != K_norm {
                continue
            }
            c, ok := colors[*r]
            if !ok {
                panic(&ShapeError { Reason: "uncolored virtual register " + r.String() })
            }
            *r = c
            cfg.ArchUsed[c] = struct{}{}
        }
    }

    for _, bb := range cfg.Blocks() {
        for _, phi := range bb.Phi {
            paint(phi.Definitions())
            paint(phi.Usages())
        }
        for _, v := range bb.Ins {
            if d, ok := v.(IrDefinitions); ok { paint(d.Definitions()) }
            if u, ok := v.(IrUsages); ok      { paint(u.Usages()) }
        }
        if u, ok := bb.Term.(IrUsages); ok {
            paint(u.Usages())
        }
    }
}

// spill rewrites r into a stack slot: a store after every definition, a
// reload before every use, each through a fresh short-lived register.
func (self RegAlloc) spill(cfg *CFG, s Reg) {
    slot := cfg.CreateSpillSlot()

    for _, bb := range cfg.Blocks() {
        /* spilled φ results store at the block head; spilled φ operands
         * reload in the predecessor tail */
        for _, phi := range bb.Phi {
            if phi.R == s {
                d := cfg.CreateRegister(s.Ptr())
                phi.R = d
                bb.Ins = append([]IrNode { &IrSpillStore { R: d, S: slot } }, bb.Ins...)
            }
            for p, r := range phi.V {
                if *r == s {
                    u := cfg.CreateRegister(s.Ptr())
                    p.Ins = append(p.Ins, &IrSpillReload { R: u, S: slot })
                    phi.V[p] = regnewref(u)
                }
            }
        }

        ins := bb.Ins
        bb.Ins = make([]IrNode, 0, len(ins))
        for _, v := range ins {
            /* reload before the use */
            if u, ok := v.(IrUsages); ok {
                var fresh Reg
                hit := false
                for _, r := range u.Usages() {
                    if *r == s {
                        if !hit {
                            hit = true
                            fresh = cfg.CreateRegister(s.Ptr())
                            bb.Ins = append(bb.Ins, &IrSpillReload { R: fresh, S: slot })
                        }
                        *r = fresh
                    }
                }
            }
            bb.Ins = append(bb.Ins, v)

            /* store after the definition */
            if d, ok := v.(IrDefinitions); ok {
                for _, r := range d.Definitions() {
                    if *r == s {
                        fresh := cfg.CreateRegister(s.Ptr())
                        *r = fresh
                        bb.Ins = append(bb.Ins, &IrSpillStore { R: fresh, S: slot })
                    }
                }
            }
        }

        /* terminator uses reload at the very end of the block */
        if u, ok := bb.Term.(IrUsages); ok {
            for _, r := range u.Usages() {
                if *r == s {
                    fresh := cfg.CreateRegister(s.Ptr())
                    bb.Ins = append(bb.Ins, &IrSpillReload { R: fresh, S: slot })
                    *r = fresh
                }
            }
        }
    }
}
