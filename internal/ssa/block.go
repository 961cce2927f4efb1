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
    `strings`
)

// BasicBlock is a label, φ nodes, straight-line instructions and exactly one
// terminator. Pred is kept coherent with terminator edges by CFG.Rebuild.
type BasicBlock struct {
    Id   int
    Phi  []*IrPhi
    Ins  []IrNode
    Pred []*BasicBlock
    Term IrTerminator
}

func (self *BasicBlock) String() string {
    buf := make([]string, 0, len(self.Phi) + len(self.Ins) + 2)
    buf = append(buf, fmt.Sprintf("bb_%d:", self.Id))

    /* dump the φ nodes and instructions */
    for _, v := range self.Phi {
        buf = append(buf, "    " + v.String())
    }
    for _, v := range self.Ins {
        buf = append(buf, "    " + v.String())
    }

    /* dump the terminator, if the block is complete */
    if self.Term != nil {
        buf = append(buf, "    " + strings.ReplaceAll(self.Term.String(), "\n", "\n    "))
    }
    return strings.Join(buf, "\n")
}

// addInstr appends a non-terminator instruction.
func (self *BasicBlock) addInstr(p IrNode) {
    if _, ok := p.(IrTerminator); ok {
        panic("terminator in instruction body of bb_" + fmt.Sprint(self.Id))
    }
    self.Ins = append(self.Ins, p)
}

// termBranch ends the block with an unconditional jump.
func (self *BasicBlock) termBranch(to *BasicBlock) {
    self.Term = IrJump(to)
}

// termCondition ends the block with a two-way branch on v.
func (self *BasicBlock) termCondition(v Reg, t *BasicBlock, f *BasicBlock) {
    self.Term = IrBranch(v, t, f)
}

// termReturn ends the block returning rr.
func (self *BasicBlock) termReturn(rr ...Reg) {
    self.Term = &IrReturn { R: rr }
}
