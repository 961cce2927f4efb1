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
    `sort`
    `strings`
)

type _RegSet map[Reg]struct{}

func regset(rr ...Reg) (rs _RegSet) {
    rs = make(_RegSet, len(rr))
    for _, r := range rr { rs.add(r) }
    return
}

func (self _RegSet) add(r Reg) {
    if r.Kind() != K_zero {
        self[r] = struct{}{}
    }
}

func (self _RegSet) addp(rr []*Reg) {
    for _, r := range rr { self.add(*r) }
}

func (self _RegSet) union(rs _RegSet) {
    for r := range rs {
        self.add(r)
    }
}

func (self _RegSet) remove(r Reg) {
    delete(self, r)
}

func (self _RegSet) subtract(rs _RegSet) {
    for r := range rs {
        self.remove(r)
    }
}

func (self _RegSet) contains(r Reg) bool {
    _, ok := self[r]
    return ok
}

func (self _RegSet) clone() (rs _RegSet) {
    rs = make(_RegSet, len(self))
    for r := range self { rs.add(r) }
    return
}

func (self _RegSet) equals(rs _RegSet) bool {
    if len(self) != len(rs) {
        return false
    }
    for r := range self {
        if _, ok := rs[r]; !ok {
            return false
        }
    }
    return true
}

func (self _RegSet) toslice() []Reg {
    nb := len(self)
    rr := make([]Reg, 0, nb)

    /* extract all registers */
    for r := range self {
        rr = append(rr, r)
    }

    /* sort by register ID */
    sort.Slice(rr, func(i int, j int) bool { return rr[i] < rr[j] })
    return rr
}

func (self _RegSet) String() string {
    nb := len(self)
    rs := make([]string, 0, nb)

    /* convert every register */
    for _, r := range self.toslice() {
        rs = append(rs, r.String())
    }
    return fmt.Sprintf("{%s}", strings.Join(rs, ", "))
}

// Liveness carries the per-block live sets: In and Out are the dataflow
// solution, Use and Def the local sets they were solved from. A φ operand
// counts as live-out of the predecessor that supplies it, never as live-in
// of the φ's own block.
type Liveness struct {
    In  map[int]_RegSet
    Out map[int]_RegSet
    Use map[int]_RegSet
    Def map[int]_RegSet
}

// ComputeLiveness solves the backward dataflow to a fixed point, iterating
// blocks in postorder (the reverse postorder walked from its end) for fast
// convergence.
func ComputeLiveness(cfg *CFG) *Liveness {
    lv := &Liveness {
        In  : make(map[int]_RegSet),
        Out : make(map[int]_RegSet),
        Use : make(map[int]_RegSet),
        Def : make(map[int]_RegSet),
    }

    /* local use/def sets, one sweep per block */
    rpo := cfg.ReversePostOrder()
    for _, bb := range rpo {
        use := make(_RegSet)
        def := make(_RegSet)

        /* φ results are definitions at the block head */
        for _, v := range bb.Phi {
            def.addp(v.Definitions())
        }

        /* upward-exposed uses */
        for _, v := range bb.Ins {
            if u, ok := v.(IrUsages); ok {
                for _, r := range u.Usages() {
                    if r.Kind() != K_zero && !def.contains(*r) {
                        use.add(*r)
                    }
                }
            }
            if d, ok := v.(IrDefinitions); ok {
                def.addp(d.Definitions())
            }
        }

        /* the terminator reads after every instruction */
        if u, ok := bb.Term.(IrUsages); ok {
            for _, r := range u.Usages() {
                if r.Kind() != K_zero && !def.contains(*r) {
                    use.add(*r)
                }
            }
        }

        lv.Use[bb.Id] = use
        lv.Def[bb.Id] = def
        lv.In[bb.Id] = make(_RegSet)
        lv.Out[bb.Id] = make(_RegSet)
    }

    /* iterate the equations to a fixed point */
    for next := true; next; {
        next = false
        for i := len(rpo) - 1; i >= 0; i-- {
            bb := rpo[i]
            out := make(_RegSet)

            /* live-out: union of successor live-ins plus φ selections over this edge */
            for it := bb.Term.Successors(); it.Next(); {
                s := it.Block()
                out.union(lv.In[s.Id])
                for _, phi := range s.Phi {
                    if r := phi.V[bb]; r != nil {
                        out.add(*r)
                    }
                }
            }

            /* live-in: use ∪ (out \ def) */
            in := out.clone()
            in.subtract(lv.Def[bb.Id])
            in.union(lv.Use[bb.Id])

            if !out.equals(lv.Out[bb.Id]) || !in.equals(lv.In[bb.Id]) {
                next = true
                lv.Out[bb.Id] = out
                lv.In[bb.Id] = in
            }
        }
    }
    return lv
}
