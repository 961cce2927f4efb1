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

// SplitCritical breaks every edge whose source branches and whose target
// joins, so that the copies PhiElim later drops on an edge execute on that
// edge alone.
//
// The pass walks each branching block and redirects its critical out-edges
// through a fresh forwarding block on the spot; predecessor lists and
// dominance data are refreshed by a single Rebuild at the end.
type SplitCritical struct{}

func (SplitCritical) Apply(cfg *CFG) {
    split := 0

    for _, src := range cfg.Blocks() {
        /* only branching blocks can own critical edges */
        if !branches(src) {
            continue
        }

        for it := src.Term.Successors(); it.Next(); {
            dst := it.Block()
            if len(dst.Pred) < 2 {
                continue
            }

            /* forwarding block takes over this edge */
            mid := cfg.CreateBlock()
            mid.Term = IrJump(dst)
            it.UpdateBlock(mid)
            split++

            /* φ operands selected over the old edge now arrive via mid */
            for _, phi := range dst.Phi {
                if r, ok := phi.V[src]; ok {
                    phi.V[mid] = r
                    delete(phi.V, src)
                }
            }
        }
    }

    if split != 0 {
        cfg.Rebuild()
    }
}

// branches reports whether bb transfers control to more than one block.
func branches(bb *BasicBlock) bool {
    sw, ok := bb.Term.(*IrSwitch)
    return ok && len(sw.Br) != 0
}
