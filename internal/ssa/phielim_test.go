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

// run interprets a copy sequence over register values; the scratch starts
// undefined (0).
func run(init map[Reg]int64, seq []IrNode) map[Reg]int64 {
    m := make(map[Reg]int64, len(init))
    for r, v := range init {
        m[r] = v
    }
    for _, v := range seq {
        cp := v.(*IrCopy)
        if cp.V.Kind() == K_zero {
            m[cp.R] = 0
        } else {
            m[cp.R] = m[cp.V]
        }
    }
    return m
}

func scratchwrites(seq []IrNode) (n int) {
    for _, v := range seq {
        if v.(*IrCopy).R == ScratchReg {
            n++
        }
    }
    return
}

func TestSequentialize_Swap(t *testing.T) {
    a, b := ArchReg(10), ArchReg(11)
    seq := Sequentialize([]Move {
        { Dst: a, Src: b },
        { Dst: b, Src: a },
    }, ScratchReg)

    /* the swap takes exactly one scratch copy plus the two real ones */
    require.Len(t, seq, 3)
    assert.Equal(t, 1, scratchwrites(seq))

    got := run(map[Reg]int64 { a: 1, b: 2 }, seq)
    assert.Equal(t, int64(2), got[a])
    assert.Equal(t, int64(1), got[b])
}

func TestSequentialize_Cycle3(t *testing.T) {
    a, b, c := ArchReg(10), ArchReg(11), ArchReg(12)
    seq := Sequentialize([]Move {
        { Dst: a, Src: b },
        { Dst: b, Src: c },
        { Dst: c, Src: a },
    }, ScratchReg)

    /* three copies plus one scratch use */
    require.Len(t, seq, 4)
    assert.Equal(t, 1, scratchwrites(seq))

    got := run(map[Reg]int64 { a: 1, b: 2, c: 3 }, seq)
    assert.Equal(t, int64(2), got[a])
    assert.Equal(t, int64(3), got[b])
    assert.Equal(t, int64(1), got[c])
}

func TestSequentialize_Chain(t *testing.T) {
    a, b, c := ArchReg(10), ArchReg(11), ArchReg(12)
    seq := Sequentialize([]Move {
        { Dst: a, Src: b },
        { Dst: b, Src: c },
    }, ScratchReg)

    /* a chain needs no scratch: write the leaf first */
    require.Len(t, seq, 2)
    assert.Zero(t, scratchwrites(seq))

    got := run(map[Reg]int64 { a: 1, b: 2, c: 3 }, seq)
    assert.Equal(t, int64(2), got[a])
    assert.Equal(t, int64(3), got[b])
    assert.Equal(t, int64(3), got[c])
}

func TestSequentialize_Fanout(t *testing.T) {
    a, b, c := ArchReg(10), ArchReg(11), ArchReg(12)
    seq := Sequentialize([]Move {
        { Dst: b, Src: a },
        { Dst: c, Src: a },
    }, ScratchReg)
    require.Len(t, seq, 2)

    got := run(map[Reg]int64 { a: 1, b: 2, c: 3 }, seq)
    assert.Equal(t, int64(1), got[b])
    assert.Equal(t, int64(1), got[c])
}

func TestSequentialize_ZeroSource(t *testing.T) {
    a := ArchReg(10)
    seq := Sequentialize([]Move {{ Dst: a, Src: Rz }}, ScratchReg)
    require.Len(t, seq, 1)

    got := run(map[Reg]int64 { a: 5 }, seq)
    assert.Equal(t, int64(0), got[a])
}

func TestPhiElim_NoPhiRemains(t *testing.T) {
    mod := compileModule(t, `
        int main() {
            int a = getInt();
            int b = getInt();
            while (b > 0) {
                int t = a;
                a = b;
                b = t % b;
            }
            printlnInt(a);
            return 0;
        }
    `)
    for _, fn := range mod.Funcs {
        for _, bb := range fn.CFG.Blocks() {
            assert.Empty(t, bb.Phi)
        }
    }
}

func TestPhiElim_SwapLoop(t *testing.T) {
    /* a tight swap loop exercises the cyclic parallel-copy case */
    mod := compileModule(t, `
        int main() {
            int a = 1;
            int b = 2;
            for (int i = 0; i < 5; i++) {
                int t = a;
                a = b;
                b = t;
            }
            printlnInt(a);
            printlnInt(b);
            return 0;
        }
    `)
    cfg := mainCFG(t, mod)
    assertPhysical(t, "main", cfg)

    /* all φs are gone and the copies live in predecessor tails */
    for _, bb := range cfg.Blocks() {
        assert.Empty(t, bb.Phi)
    }
}
