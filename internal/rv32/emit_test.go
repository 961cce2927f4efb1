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

package rv32

import (
    `strings`
    `testing`

    `github.com/mxlang/mxc/internal/mx/parser`
    `github.com/mxlang/mxc/internal/mx/sema`
    `github.com/mxlang/mxc/internal/ssa`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func emit(t *testing.T, src string) string {
    prog, err := parser.Parse(src)
    require.NoError(t, err)
    info, err := sema.Check(prog)
    require.NoError(t, err)
    mod := ssa.Build(prog, info)
    mod.Compile()
    return Emit(mod)
}

func TestEmit_StraightLine(t *testing.T) {
    text := emit(t, `int main() { return 0; }`)

    assert.Contains(t, text, ".text")
    assert.Contains(t, text, ".globl main")
    assert.Contains(t, text, ".type main,@function")
    assert.Contains(t, text, "main:")
    assert.Contains(t, text, "addi sp, sp, -16")
    assert.Contains(t, text, "li a0, 0")
    assert.Contains(t, text, "ret")
    assert.NotContains(t, text, "call")
    assert.NotContains(t, text, "%r")
    assert.NotContains(t, text, "φ")
}

func TestEmit_Strings(t *testing.T) {
    text := emit(t, `int main() { print("hi\n"); return 0; }`)

    /* length word above the label, escaped bytes below */
    assert.Contains(t, text, ".section .rodata")
    assert.Contains(t, text, ".word 3")
    assert.Contains(t, text, ".str.0:")
    assert.Contains(t, text, `.asciz "hi\n"`)
    assert.Contains(t, text, "call print")

    /* literal addresses materialize through %hi/%lo */
    assert.Contains(t, text, "%hi(.str.0)")
    assert.Contains(t, text, "%lo(.str.0)")
}

func TestEmit_StringDedup(t *testing.T) {
    text := emit(t, `int main() { print("x"); print("x"); return 0; }`)
    assert.Equal(t, 1, strings.Count(text, ".asciz \"x\""))
}

func TestEmit_GlobalSections(t *testing.T) {
    text := emit(t, `
        int a = 7;
        int b;
        int main() { return a + b; }
    `)
    assert.Contains(t, text, ".section .data")
    assert.Contains(t, text, ".word 7")
    assert.Contains(t, text, ".section .bss")
    assert.Contains(t, text, ".space 4")
    assert.Contains(t, text, "%hi(a)")
}

func TestEmit_LongImmediate(t *testing.T) {
    text := emit(t, `int main() { return 1000000; }`)

    /* 1000000 = 244 << 12 + 576 */
    assert.Contains(t, text, "lui")
    assert.NotContains(t, text, "li a0, 1000000")
}

func TestEmit_Calls(t *testing.T) {
    text := emit(t, `
        int add(int a, int b) { return a + b; }
        int main() { printlnInt(add(3, 4)); return 0; }
    `)
    assert.Contains(t, text, "call add")
    assert.Contains(t, text, "call printlnInt")
    assert.Contains(t, text, ".globl add")
}

func TestEmit_ManyArgs(t *testing.T) {
    text := emit(t, `
        int f(int a, int b, int c, int d, int e, int g, int h, int i, int j, int k) {
            return a + j + k;
        }
        int main() { return f(1, 2, 3, 4, 5, 6, 7, 8, 9, 10); }
    `)

    /* the 9th and 10th arguments travel on the stack */
    assert.Contains(t, text, "sw")
    assert.Contains(t, text, "call f")
}

func TestEmit_Methods(t *testing.T) {
    text := emit(t, `
        class P {
            int x;
            P(int v) { x = v; }
            int get() { return x; }
        }
        int main() { P p = new P(7); return p.get(); }
    `)
    assert.Contains(t, text, "P.P:")
    assert.Contains(t, text, "P.get:")
    assert.Contains(t, text, "call P.P")
    assert.Contains(t, text, "call P.get")
    assert.Contains(t, text, "call malloc")
}

func TestEmit_Branches(t *testing.T) {
    text := emit(t, `
        int main() {
            int x = getInt();
            if (x > 0) printlnInt(x);
            return 0;
        }
    `)
    assert.Contains(t, text, "bnez")
    assert.Contains(t, text, "slt")
}

func TestSplitImm32(t *testing.T) {
    for _, v := range []int64 { 0, 1, -1, 2047, 2048, -2048, -2049, 1000000, -1000000, 0x7fffffff, -0x80000000 } {
        hi, lo := splitImm32(v)
        require.GreaterOrEqual(t, lo, int64(-2048), "v=%d", v)
        require.LessOrEqual(t, lo, int64(2047), "v=%d", v)

        /* sign-extend the 20-bit lui immediate back for the check */
        sext := hi << 12
        if hi >= 1 << 19 {
            sext -= 1 << 32
        }
        assert.Equal(t, uint32(v), uint32(sext + lo), "v=%d", v)
    }
}
