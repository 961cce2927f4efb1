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
)

// ShapeError reports a malformed IR: a compiler bug, not a user error.
type ShapeError struct {
    Fn     string
    Block  int
    Reason string
}

func (self *ShapeError) Error() string {
    if self.Fn == "" {
        return fmt.Sprintf("IR shape violation: %s", self.Reason)
    }
    return fmt.Sprintf("IR shape violation in %s, bb_%d: %s", self.Fn, self.Block, self.Reason)
}

func shapeerror(fn string, bb int, format string, args ...interface{}) {
    panic(&ShapeError { Fn: fn, Block: bb, Reason: fmt.Sprintf(format, args...) })
}

// verifyCFG checks the structural invariants every pass relies on: one
// terminator per block, coherent predecessor lists, φ arity matching the
// predecessors, and a φ-free entry block with no predecessors.
func verifyCFG(name string, cfg *CFG) {
    if len(cfg.Root.Pred) != 0 {
        shapeerror(name, cfg.Root.Id, "entry block has %d predecessor(s)", len(cfg.Root.Pred))
    }
    if len(cfg.Root.Phi) != 0 {
        shapeerror(name, cfg.Root.Id, "entry block has phi nodes")
    }

    for _, bb := range cfg.Blocks() {
        if bb.Term == nil {
            shapeerror(name, bb.Id, "block has no terminator")
        }
        for _, v := range bb.Ins {
            if _, ok := v.(IrTerminator); ok {
                shapeerror(name, bb.Id, "terminator in instruction body")
            }
        }

        /* successor edges must be mirrored by predecessor lists */
        for it := bb.Term.Successors(); it.Next(); {
            s := it.Block()
            found := false
            for _, p := range s.Pred {
                if p == bb {
                    found = true
                    break
                }
            }
            if !found {
                shapeerror(name, bb.Id, "missing predecessor edge bb_%d -> bb_%d", bb.Id, s.Id)
            }
        }

        /* φ operands must match the predecessors exactly */
        for _, phi := range bb.Phi {
            if len(phi.V) != len(bb.Pred) {
                shapeerror(name, bb.Id, "phi arity %d does not match %d predecessor(s)", len(phi.V), len(bb.Pred))
            }
            for _, p := range bb.Pred {
                if _, ok := phi.V[p]; !ok {
                    shapeerror(name, bb.Id, "phi has no operand for predecessor bb_%d", p.Id)
                }
            }
        }
    }
}

// verifySSA checks the single-definition invariant of virtual registers.
func verifySSA(name string, cfg *CFG) {
    defs := make(map[Reg]int)

    check := func(bb *BasicBlock, rr []*Reg) {
        for _, r := range rr {
            if r.Kind() != K_norm {
                continue
            }
            if prev, ok := defs[*r]; ok {
                shapeerror(name, bb.Id, "register %s redefined (first defined in bb_%d)", *r, prev)
            }
            defs[*r] = bb.Id
        }
    }

    for _, bb := range cfg.Blocks() {
        for _, phi := range bb.Phi {
            check(bb, phi.Definitions())
        }
        for _, v := range bb.Ins {
            if d, ok := v.(IrDefinitions); ok {
                check(bb, d.Definitions())
            }
        }
    }
}
