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
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// assertPhysical walks a compiled CFG and fails on any surviving virtual
// register or φ node.
func assertPhysical(t *testing.T, name string, cfg *CFG) {
    check := func(rr []*Reg) {
        for _, r := range rr {
            assert.NotEqual(t, uint8(K_norm), r.Kind(), "%s: virtual register %s", name, r)
        }
    }
    for _, bb := range cfg.Blocks() {
        assert.Empty(t, bb.Phi, "%s: φ in bb_%d", name, bb.Id)
        for _, v := range bb.Ins {
            if d, ok := v.(IrDefinitions); ok { check(d.Definitions()) }
            if u, ok := v.(IrUsages); ok      { check(u.Usages()) }
        }
        if u, ok := bb.Term.(IrUsages); ok {
            check(u.Usages())
        }
    }
}

func compileModule(t *testing.T, src string) *Module {
    mod := testBuild(t, src)
    mod.Compile()
    return mod
}

func TestCompile_EverythingPhysical(t *testing.T) {
    cases := []struct {
        name string
        src  string
    } {
        { "straight", `int main() { return 3 + 4; }` },
        { "branches", `int main() { int x = getInt(); if (x > 0 && x < 9) x = -x; return x; }` },
        { "loop", `int main() { int s = 0; for (int i = 0; i < 10; i++) s = s + i; printlnInt(s); return 0; }` },
        { "calls", `int f(int a, int b) { return a * b; } int main() { return f(f(1, 2), f(3, 4)); }` },
        { "strings", `int main() { print("a" + "b" + toString(3)); return 0; }` },
        { "classes", `class P { int x; P(int v) { x = v; } } int main() { P p = new P(7); printlnInt(p.x); return 0; }` },
    }
    for _, tc := range cases {
        t.Run(tc.name, func(t *testing.T) {
            mod := compileModule(t, tc.src)
            for _, fn := range mod.Funcs {
                assertPhysical(t, fn.Name, fn.CFG)
            }
        })
    }
}

func TestRegAlloc_DistinctColors(t *testing.T) {
    mod := compileModule(t, `
        int main() {
            int a = getInt();
            int b = getInt();
            printlnInt(a + b);
            return 0;
        }
    `)
    cfg := mainCFG(t, mod)

    /* a and b are simultaneously live, so the add reads two registers */
    found := false
    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            if p, ok := v.(*IrBinaryExpr); ok && p.Op == IrOpAdd {
                found = true
                assert.NotEqual(t, p.X, p.Y)
            }
        }
    }
    require.True(t, found)
}

func TestRegAlloc_CalleeSavedAcrossCall(t *testing.T) {
    mod := compileModule(t, `
        int main() {
            int a = getInt();
            int b = getInt();
            return a + b;
        }
    `)
    cfg := mainCFG(t, mod)

    /* a is live across the second call, so it cannot sit in a caller-saved
     * register (it was not spilled: the pressure is tiny) */
    require.Zero(t, cfg.Spills)
    used := false
    for r := range cfg.ArchUsed {
        if IsCalleeSaved(r) {
            used = true
        }
    }
    assert.True(t, used)
}

func TestRegAlloc_SpillPressure(t *testing.T) {
    var b strings.Builder
    b.WriteString("int main() {\n")
    for i := 0; i < 30; i++ {
        fmt.Fprintf(&b, "    int v%d = getInt();\n", i)
    }
    b.WriteString("    int s = 0;\n")
    for i := 0; i < 30; i++ {
        fmt.Fprintf(&b, "    s = s + v%d;\n", i)
    }
    b.WriteString("    printlnInt(s);\n    return 0;\n}\n")

    mod := compileModule(t, b.String())
    cfg := mainCFG(t, mod)

    /* 30 values alive at once cannot fit the callee-saved file */
    assert.Greater(t, cfg.Spills, 0)
    assertPhysical(t, "main", cfg)
}

func TestTDCE_RemovesDeadDefs(t *testing.T) {
    mod := testBuild(t, `
        int main() {
            int dead = 1 + 2;
            return 0;
        }
    `)
    cfg := mainCFG(t, mod)
    SplitCritical{}.Apply(cfg)
    Mem2Reg{}.Apply(cfg)
    TDCE{}.Apply(cfg)

    for _, bb := range cfg.Blocks() {
        for _, v := range bb.Ins {
            _, isbin := v.(*IrBinaryExpr)
            assert.False(t, isbin, "dead arithmetic survived: %s", v)
        }
    }
}

func TestTDCE_Idempotent(t *testing.T) {
    mod := testBuild(t, `
        int main() {
            int x = getInt();
            int dead = x * 2;
            if (x > 0) dead = dead + 1;
            return x;
        }
    `)
    cfg := mainCFG(t, mod)
    SplitCritical{}.Apply(cfg)
    Mem2Reg{}.Apply(cfg)

    TDCE{}.Apply(cfg)
    once := cfg.String()
    TDCE{}.Apply(cfg)
    assert.Equal(t, once, cfg.String())
}
