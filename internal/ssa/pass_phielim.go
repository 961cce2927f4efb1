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
)

// Move is one pending copy of a parallel copy group.
type Move struct {
    Dst Reg
    Src Reg
}

// PhiElim realizes φ semantics after coloring: for every CFG edge into a φ
// block, the parallel copy { dst_i ← src_i } is sequentialized into the
// predecessor tail, breaking cycles through the scratch register.
type PhiElim struct{}

func (self PhiElim) Apply(cfg *CFG) {
    for _, bb := range cfg.Blocks() {
        if len(bb.Phi) == 0 {
            continue
        }

        /* one parallel copy per predecessor */
        for _, p := range bb.Pred {
            nb := 0
            for it := p.Term.Successors(); it.Next(); {
                nb++
            }

            /* SplitCritical must have run */
            if nb != 1 {
                panic(&ShapeError {
                    Block  : p.Id,
                    Reason : fmt.Sprintf("critical edge bb_%d -> bb_%d at phi elimination", p.Id, bb.Id),
                })
            }

            /* gather the copies, identities elided */
            moves := make([]Move, 0, len(bb.Phi))
            for _, phi := range bb.Phi {
                r := phi.V[p]
                if r == nil {
                    panic(&ShapeError {
                        Block  : bb.Id,
                        Reason : fmt.Sprintf("phi has no operand for predecessor bb_%d", p.Id),
                    })
                }
                if phi.R != *r {
                    moves = append(moves, Move { Dst: phi.R, Src: *r })
                }
            }

            /* stable order keeps the emitted copies deterministic */
            sort.Slice(moves, func(i int, j int) bool { return moves[i].Dst < moves[j].Dst })
            for _, m := range Sequentialize(moves, ScratchReg) {
                p.Ins = append(p.Ins, m)
            }
        }
        bb.Phi = bb.Phi[:0]
    }
}

// Sequentialize orders a parallel copy into plain copies that have the same
// joint effect. A destination that no pending copy still reads is safe to
// write; when only cycles remain, one member is parked in the scratch
// register to cut the cycle open.
func Sequentialize(moves []Move, scratch Reg) []IrNode {
    out := make([]IrNode, 0, len(moves) + 1)
    pending := make([]Move, 0, len(moves))

    /* identity copies contribute nothing */
    for _, m := range moves {
        if m.Dst != m.Src {
            pending = append(pending, m)
        }
    }

    for len(pending) != 0 {
        emitted := false

        /* emit every leaf: a destination nobody reads anymore */
        for i := 0; i < len(pending); {
            m := pending[i]
            leaf := true
            for _, n := range pending {
                if n.Src == m.Dst {
                    leaf = false
                    break
                }
            }
            if !leaf {
                i++
                continue
            }
            out = append(out, &IrCopy { R: m.Dst, V: m.Src })
            pending = append(pending[:i], pending[i + 1:]...)
            emitted = true
        }
        if emitted || len(pending) == 0 {
            continue
        }

        /* only cycles remain: park one destination in the scratch and
         * redirect its readers there */
        m := pending[0]
        out = append(out, &IrCopy { R: scratch, V: m.Dst })
        for i := range pending {
            if pending[i].Src == m.Dst {
                pending[i].Src = scratch
            }
        }
    }
    return out
}
