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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// phiCFG hand-builds a diamond whose join point merges two values:
//
//      bb0: a, b, c = a < b; br c, bb1, bb2
//      bb1: d = a + b
//      bb2: e = a - b
//      bb3: f = φ(bb1: d, bb2: e); ret f
func phiCFG() (*CFG, [4]*BasicBlock, map[string]Reg) {
    cfg := newCFG()
    bb0 := cfg.CreateBlock()
    bb1 := cfg.CreateBlock()
    bb2 := cfg.CreateBlock()
    bb3 := cfg.CreateBlock()

    a := cfg.CreateRegister(false)
    b := cfg.CreateRegister(false)
    c := cfg.CreateRegister(false)
    d := cfg.CreateRegister(false)
    e := cfg.CreateRegister(false)
    f := cfg.CreateRegister(false)

    bb0.addInstr(&IrConstInt { R: a, V: 1 })
    bb0.addInstr(&IrConstInt { R: b, V: 2 })
    bb0.addInstr(&IrBinaryExpr { R: c, X: a, Y: b, Op: IrCmpLt })
    bb0.termCondition(c, bb1, bb2)

    bb1.addInstr(&IrBinaryExpr { R: d, X: a, Y: b, Op: IrOpAdd })
    bb1.termBranch(bb3)

    bb2.addInstr(&IrBinaryExpr { R: e, X: a, Y: b, Op: IrOpSub })
    bb2.termBranch(bb3)

    bb3.Phi = append(bb3.Phi, &IrPhi {
        R: f,
        V: map[*BasicBlock]*Reg { bb1: regnewref(d), bb2: regnewref(e) },
    })
    bb3.termReturn(f)

    cfg.Root = bb0
    cfg.Rebuild()
    return cfg, [4]*BasicBlock { bb0, bb1, bb2, bb3 }, map[string]Reg {
        "a": a, "b": b, "c": c, "d": d, "e": e, "f": f,
    }
}

func TestLiveness_PhiOperands(t *testing.T) {
    cfg, bb, rr := phiCFG()
    lv := ComputeLiveness(cfg)

    /* a φ operand is live-out of the predecessor supplying it... */
    assert.True(t, lv.Out[bb[1].Id].contains(rr["d"]))
    assert.True(t, lv.Out[bb[2].Id].contains(rr["e"]))
    assert.False(t, lv.Out[bb[1].Id].contains(rr["e"]))
    assert.False(t, lv.Out[bb[2].Id].contains(rr["d"]))

    /* ...but not live-in of the φ's own block, and neither is the result */
    assert.False(t, lv.In[bb[3].Id].contains(rr["d"]))
    assert.False(t, lv.In[bb[3].Id].contains(rr["e"]))
    assert.False(t, lv.In[bb[3].Id].contains(rr["f"]))
}

func TestLiveness_UpwardExposure(t *testing.T) {
    cfg, bb, rr := phiCFG()
    lv := ComputeLiveness(cfg)

    /* a and b flow into both branches */
    assert.True(t, lv.In[bb[1].Id].contains(rr["a"]))
    assert.True(t, lv.In[bb[1].Id].contains(rr["b"]))
    assert.True(t, lv.In[bb[2].Id].contains(rr["a"]))

    /* nothing is live into the entry */
    assert.Empty(t, lv.In[bb[0].Id])

    /* the branch condition dies at the terminator */
    assert.True(t, lv.Use[bb[0].Id].contains(rr["c"]) == false)
    assert.False(t, lv.Out[bb[0].Id].contains(rr["c"]))
}

func TestLiveness_LoopCarried(t *testing.T) {
    // bb0: a; bb1: use a, br bb1/bb2; bb2: ret
    cfg := newCFG()
    bb0 := cfg.CreateBlock()
    bb1 := cfg.CreateBlock()
    bb2 := cfg.CreateBlock()

    a := cfg.CreateRegister(false)
    c := cfg.CreateRegister(false)

    bb0.addInstr(&IrConstInt { R: a, V: 7 })
    bb0.termBranch(bb1)
    bb1.addInstr(&IrBinaryExpr { R: c, X: a, Y: a, Op: IrCmpLt })
    bb1.termCondition(c, bb1, bb2)
    bb2.termReturn(a)

    cfg.Root = bb0
    cfg.Rebuild()
    lv := ComputeLiveness(cfg)

    /* a stays live around the back edge */
    require.True(t, lv.Out[bb0.Id].contains(a))
    assert.True(t, lv.In[bb1.Id].contains(a))
    assert.True(t, lv.Out[bb1.Id].contains(a))
    assert.True(t, lv.In[bb2.Id].contains(a))
}
