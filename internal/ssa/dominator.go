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

// Immediate dominators by iterative dataflow over the reverse postorder,
// converging the idom of every block against its already-settled
// predecessors. A handful of sweeps reach the fixed point on any CFG the
// builder produces; reducible ones settle in two.

// buildDominatorTree fills DominatedBy, DominatorOf and Depth from the
// current predecessor lists.
func buildDominatorTree(cfg *CFG) {
    rpo := cfg.ReversePostOrder()
    ord := make(map[int]int, len(rpo))
    idom := make(map[int]*BasicBlock, len(rpo))

    /* rank blocks by their reverse-postorder position */
    for i, bb := range rpo {
        ord[bb.Id] = i
    }

    /* walking idom chains from two blocks at matched ranks meets at their
     * closest common dominator */
    meet := func(a *BasicBlock, b *BasicBlock) *BasicBlock {
        for a != b {
            for ord[a.Id] > ord[b.Id] {
                a = idom[a.Id]
            }
            for ord[b.Id] > ord[a.Id] {
                b = idom[b.Id]
            }
        }
        return a
    }

    /* converge every non-root block against its resolved predecessors */
    idom[cfg.Root.Id] = cfg.Root
    for again := true; again; {
        again = false
        for _, bb := range rpo[1:] {
            var cand *BasicBlock
            for _, p := range bb.Pred {
                if idom[p.Id] == nil {
                    continue
                }
                if cand == nil {
                    cand = p
                } else {
                    cand = meet(cand, p)
                }
            }
            if cand != nil && idom[bb.Id] != cand {
                idom[bb.Id] = cand
                again = true
            }
        }
    }

    /* publish the tree; the root dominates itself but has no parent */
    cfg.Depth = make(map[int]int, len(rpo))
    cfg.DominatedBy = make(map[int]*BasicBlock, len(rpo))
    cfg.DominatorOf = make(map[int][]*BasicBlock, len(rpo))

    for _, bb := range rpo[1:] {
        d := idom[bb.Id]
        cfg.DominatedBy[bb.Id] = d
        cfg.DominatorOf[d.Id] = append(cfg.DominatorOf[d.Id], bb)
    }

    /* a parent always ranks before its children in reverse postorder, so
     * one forward sweep settles every depth */
    cfg.Depth[cfg.Root.Id] = 0
    for _, bb := range rpo[1:] {
        cfg.Depth[bb.Id] = cfg.Depth[idom[bb.Id].Id] + 1
    }
}

// computeDominanceFrontier fills cfg.DominanceFrontier: DF(b) is every block
// w such that b dominates a predecessor of w but not strictly w itself.
func computeDominanceFrontier(cfg *CFG) {
    cfg.DominanceFrontier = make(map[int][]*BasicBlock)
    mark := make(map[int]map[int]bool)

    /* standard runner walk: only join points contribute */
    for _, bb := range cfg.Blocks() {
        if len(bb.Pred) < 2 {
            continue
        }
        idom := cfg.DominatedBy[bb.Id]
        for _, p := range bb.Pred {
            for r := p; r != nil && r != idom; r = cfg.DominatedBy[r.Id] {
                if mark[r.Id] == nil {
                    mark[r.Id] = make(map[int]bool)
                }
                if !mark[r.Id][bb.Id] {
                    mark[r.Id][bb.Id] = true
                    cfg.DominanceFrontier[r.Id] = append(cfg.DominanceFrontier[r.Id], bb)
                }
            }
        }
    }
}
