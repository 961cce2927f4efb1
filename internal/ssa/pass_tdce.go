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

// TDCE removes trivial dead code: definitions nobody reads, minus anything
// with a side effect. Dead definitions are found with a use-count worklist,
// so one pass over the CFG suffices and chains of dead values unravel
// without rescanning; a second application removes nothing.
type TDCE struct{}

func (TDCE) Apply(cfg *CFG) {
    uses := make(map[Reg]int)
    sites := make(map[Reg]IrNode)

    tally := func(rr []*Reg) {
        for _, r := range rr {
            if r.Kind() == K_norm {
                uses[*r]++
            }
        }
    }

    /* one sweep records every definition site and reference count */
    for _, bb := range cfg.Blocks() {
        for _, phi := range bb.Phi {
            sites[phi.R] = phi
            tally(phi.Usages())
        }
        for _, v := range bb.Ins {
            if d, ok := v.(IrDefinitions); ok {
                for _, r := range d.Definitions() {
                    if r.Kind() == K_norm {
                        sites[*r] = v
                    }
                }
            }
            if u, ok := v.(IrUsages); ok {
                tally(u.Usages())
            }
        }
        if u, ok := bb.Term.(IrUsages); ok {
            tally(u.Usages())
        }
    }

    /* seed the worklist with every unreferenced definition */
    var queue []Reg
    for r := range sites {
        if uses[r] == 0 {
            queue = append(queue, r)
        }
    }

    /* kill dead values; their operands may become dead in turn */
    dead := make(map[IrNode]bool)
    for len(queue) != 0 {
        r := queue[0]
        queue = queue[1:]

        v := sites[r]
        if v == nil || dead[v] {
            continue
        }

        /* effectful definitions stay, but drop the unread result */
        if _, keep := v.(IrImpure); keep {
            if d, ok := v.(IrDefinitions); ok {
                for _, def := range d.Definitions() {
                    if *def == r {
                        *def = def.Zero()
                    }
                }
            }
            continue
        }
        dead[v] = true

        /* release the operands */
        if u, ok := v.(IrUsages); ok {
            for _, ref := range u.Usages() {
                if ref.Kind() != K_norm {
                    continue
                }
                if uses[*ref]--; uses[*ref] == 0 {
                    queue = append(queue, *ref)
                }
            }
        }
    }

    /* sweep the corpses */
    if len(dead) == 0 {
        return
    }
    for _, bb := range cfg.Blocks() {
        phi, ins := bb.Phi, bb.Ins
        bb.Phi, bb.Ins = bb.Phi[:0], bb.Ins[:0]
        for _, v := range phi {
            if !dead[v] {
                bb.Phi = append(bb.Phi, v)
            }
        }
        for _, v := range ins {
            if !dead[v] {
                bb.Ins = append(bb.Ins, v)
            }
        }
    }
}
