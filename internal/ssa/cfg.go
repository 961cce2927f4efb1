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
    `strings`

    `github.com/oleiade/lane`
)

// CFG is a per-function control-flow graph together with its dominator
// tree. Rebuild recomputes predecessors and all dominance data from the
// terminator edges; passes that rewrite edges must call it.
type CFG struct {
    Root              *BasicBlock
    Depth             map[int]int
    DominatedBy       map[int]*BasicBlock
    DominatorOf       map[int][]*BasicBlock
    DominanceFrontier map[int][]*BasicBlock

    /* per-function pools */
    nextblk  int
    nextreg  int
    Spills   int
    ArchUsed map[Reg]struct{}
}

func newCFG() *CFG {
    return &CFG {
        Depth             : make(map[int]int),
        DominatedBy       : make(map[int]*BasicBlock),
        DominatorOf       : make(map[int][]*BasicBlock),
        DominanceFrontier : make(map[int][]*BasicBlock),
        ArchUsed          : make(map[Reg]struct{}),
    }
}

// CreateBlock mints an empty block with a fresh label.
func (self *CFG) CreateBlock() (r *BasicBlock) {
    r = &BasicBlock { Id: self.nextblk }
    self.nextblk++
    return
}

// CreateRegister mints a fresh virtual register.
func (self *CFG) CreateRegister(ptr bool) Reg {
    i := self.nextreg
    self.nextreg++
    if ptr {
        return mkreg(1, K_norm, i)
    } else {
        return mkreg(0, K_norm, i)
    }
}

// CreateSpillSlot reserves a 4-byte stack slot for a spilled register.
func (self *CFG) CreateSpillSlot() (r int) {
    r = self.Spills
    self.Spills++
    return
}

// MaxBlock returns an upper bound of block IDs in this CFG.
func (self *CFG) MaxBlock() int {
    return self.nextblk
}

// Rebuild recomputes predecessor lists and the dominator structures from
// terminator edges. Unreachable blocks drop out.
func (self *CFG) Rebuild() {
    q := lane.NewQueue()
    vis := make(map[int]*BasicBlock)

    /* clear all the predecessors */
    for q.Enqueue(self.Root); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        if _, ok := vis[p.Id]; ok {
            continue
        }
        vis[p.Id] = p
        p.Pred = p.Pred[:0]
        for it := p.Term.Successors(); it.Next(); {
            q.Enqueue(it.Block())
        }
    }

    /* reattach predecessor edges in traversal order */
    for q.Enqueue(self.Root); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        if vis[p.Id] == nil {
            continue
        }
        vis[p.Id] = nil
        for it := p.Term.Successors(); it.Next(); {
            bb := it.Block()
            bb.Pred = append(bb.Pred, p)
            q.Enqueue(bb)
        }
    }

    /* drop φ entries of removed predecessors */
    for _, p := range self.Blocks() {
        for _, phi := range p.Phi {
            for b := range phi.V {
                alive := false
                for _, pred := range p.Pred {
                    if pred == b {
                        alive = true
                        break
                    }
                }
                if !alive {
                    delete(phi.V, b)
                }
            }
        }
    }

    /* dominator tree, depth and dominance frontiers */
    buildDominatorTree(self)
    computeDominanceFrontier(self)
}

// Blocks lists every reachable block, ordered by ID.
func (self *CFG) Blocks() []*BasicBlock {
    q := lane.NewQueue()
    vis := make(map[int]bool)
    ret := make([]*BasicBlock, 0, self.nextblk)

    for q.Enqueue(self.Root); !q.Empty(); {
        p := q.Dequeue().(*BasicBlock)
        if vis[p.Id] {
            continue
        }
        vis[p.Id] = true
        ret = append(ret, p)
        for it := p.Term.Successors(); it.Next(); {
            q.Enqueue(it.Block())
        }
    }

    sort.Slice(ret, func(i int, j int) bool { return ret[i].Id < ret[j].Id })
    return ret
}

// ReversePostOrder lists blocks so that every block precedes its successors
// except on back edges; the order dataflow iteration wants.
func (self *CFG) ReversePostOrder() []*BasicBlock {
    vis := make(map[int]bool)
    ret := make([]*BasicBlock, 0, self.nextblk)

    var walk func(bb *BasicBlock)
    walk = func(bb *BasicBlock) {
        vis[bb.Id] = true
        for it := bb.Term.Successors(); it.Next(); {
            if p := it.Block(); !vis[p.Id] {
                walk(p)
            }
        }
        ret = append(ret, bb)
    }

    walk(self.Root)
    blockreverse(ret)
    return ret
}

// PostOrder lists the dominator tree bottom-up: every block comes after
// all the blocks it dominates, the root last.
func (self *CFG) PostOrder() []*BasicBlock {
    ret := make([]*BasicBlock, 0, len(self.Depth))

    var walk func(bb *BasicBlock)
    walk = func(bb *BasicBlock) {
        for _, p := range self.DominatorOf[bb.Id] {
            walk(p)
        }
        ret = append(ret, bb)
    }

    walk(self.Root)
    return ret
}

func (self *CFG) String() string {
    bbs := self.Blocks()
    buf := make([]string, 0, len(bbs))
    for _, bb := range bbs {
        buf = append(buf, bb.String())
    }
    return strings.Join(buf, "\n")
}
