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
    `strconv`
    `strings`
    `testing`

    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

// _Machine executes a fully compiled module (physical registers, no φ) so
// tests can observe the values a program actually computes, not just the
// shape of the emitted code. Memory is a flat word store; strings keep a
// byte-level shadow for the runtime primitives.
type _Machine struct {
    mod  *Module
    brk  int64
    mem  map[int64]int64
    str  map[int64]string
    in   []int64
    out  strings.Builder
    syms map[string]int64
}

func newMachine(mod *Module, in []int64) *_Machine {
    m := &_Machine {
        mod  : mod,
        brk  : 0x10000,
        in   : in,
        mem  : make(map[int64]int64),
        str  : make(map[int64]string),
        syms : make(map[string]int64),
    }

    /* globals get one word each */
    for _, g := range mod.Globals {
        p := m.bump(4)
        m.mem[p] = g.Init
        m.syms[g.Name] = p
    }

    /* string literals, length-prefixed like the .rodata image */
    for i, s := range mod.Strings {
        m.syms[fmt.Sprintf(".str.%d", i)] = m.newstr(s)
    }
    return m
}

func (self *_Machine) bump(n int64) (p int64) {
    p = self.brk
    self.brk += (n + 3) &^ 3
    return
}

func (self *_Machine) newstr(s string) int64 {
    p := self.bump(int64(len(s)) + 8) + 4
    self.mem[p - 4] = int64(len(s))
    self.str[p] = s
    return p
}

type _Frame struct {
    args  []int64
    regs  map[Reg]int64
    slots map[int]int64
    cells map[int]int64
}

func (self *_Frame) get(r Reg) int64 {
    if r.Kind() == K_zero {
        return 0
    }
    return self.regs[r]
}

func (self *_Frame) set(r Reg, v int64) {
    if r.Kind() != K_zero {
        self.regs[r] = int64(int32(v))
    }
}

func b2i(b bool) int64 {
    if b {
        return 1
    }
    return 0
}

func (self *_Machine) call(name string, args []int64) int64 {
    switch name {
        case "print"          : self.out.WriteString(self.str[args[0]]); return 0
        case "println"        : self.out.WriteString(self.str[args[0]] + "\n"); return 0
        case "printInt"       : self.out.WriteString(strconv.FormatInt(args[0], 10)); return 0
        case "printlnInt"     : self.out.WriteString(strconv.FormatInt(args[0], 10) + "\n"); return 0
        case "toString"       : return self.newstr(strconv.FormatInt(args[0], 10))
        case "malloc"         : return self.bump(args[0] + 4)
        case "string.length"  : return self.mem[args[0] - 4]
        case "string.add"     : return self.newstr(self.str[args[0]] + self.str[args[1]])
        case "string.eq"      : return b2i(self.str[args[0]] == self.str[args[1]])
        case "string.ne"      : return b2i(self.str[args[0]] != self.str[args[1]])
        case "string.lt"      : return b2i(self.str[args[0]] < self.str[args[1]])
        case "string.le"      : return b2i(self.str[args[0]] <= self.str[args[1]])
        case "string.gt"      : return b2i(self.str[args[0]] > self.str[args[1]])
        case "string.ge"      : return b2i(self.str[args[0]] >= self.str[args[1]])
        case "string.ord"     : return int64(self.str[args[0]][args[1]])
        case "string.substring": return self.newstr(self.str[args[0]][args[1]:args[2]])

        case "string.parseInt": {
            v, _ := strconv.ParseInt(self.str[args[0]], 10, 64)
            return v
        }

        case "getInt": {
            v := self.in[0]
            self.in = self.in[1:]
            return v
        }

        case "getString": {
            v := self.in[0]
            self.in = self.in[1:]
            return self.newstr(strconv.FormatInt(v, 10))
        }

        case ArrayAllocFunc: {
            n := args[0]
            p := self.bump(4 * n + 4)
            self.mem[p] = n
            return p + 4
        }
    }

    fn := self.mod.FindFunc(name)
    if fn == nil {
        panic("interp: undefined function " + name)
    }
    return self.exec(fn, args)
}

func (self *_Machine) exec(fn *Function, args []int64) int64 {
    f := &_Frame {
        args  : args,
        regs  : make(map[Reg]int64),
        slots : make(map[int]int64),
        cells : make(map[int]int64),
    }

    bb := fn.CFG.Root
    for steps := 0; ; steps++ {
        if steps > 1 << 22 {
            panic("interp: runaway program in " + fn.Name)
        }

        for _, v := range bb.Ins {
            self.step(f, v)
        }

        switch t := bb.Term.(type) {
            case *IrReturn: {
                if len(t.R) != 0 {
                    return f.get(t.R[0])
                }
                return 0
            }

            case *IrSwitch: {
                next := t.Ln
                v := f.get(t.V)
                for k, dst := range t.Br {
                    if v == k {
                        next = dst
                        break
                    }
                }
                bb = next
            }

            default: {
                panic("interp: bad terminator in " + fn.Name)
            }
        }
    }
}

func (self *_Machine) step(f *_Frame, v IrNode) {
    switch p := v.(type) {
        case *IrAlloca: {
            if _, ok := f.cells[p.Id]; !ok {
                f.cells[p.Id] = self.bump(4)
            }
            f.set(p.R, f.cells[p.Id])
        }

        case *IrParam       : f.set(p.R, f.args[p.Id])
        case *IrConstInt    : f.set(p.R, p.V)
        case *IrLoad        : f.set(p.R, self.mem[f.get(p.Mem)])
        case *IrStore       : self.mem[f.get(p.Mem)] = f.get(p.R)
        case *IrLEA         : f.set(p.R, f.get(p.Mem) + f.get(p.Off))
        case *IrCopy        : f.set(p.R, f.get(p.V))
        case *IrSpillStore  : f.slots[p.S] = f.get(p.R)
        case *IrSpillReload : f.set(p.R, f.slots[p.S])

        case *IrAddrOf: {
            a, ok := self.syms[p.Sym]
            if !ok {
                panic("interp: undefined symbol " + p.Sym)
            }
            f.set(p.R, a)
        }

        case *IrUnaryExpr: {
            x := int32(f.get(p.V))
            switch p.Op {
                case IrOpNegate   : f.set(p.R, int64(-x))
                case IrOpInvert   : f.set(p.R, int64(^x))
                case IrOpLogicNot : f.set(p.R, b2i(x == 0))
            }
        }

        case *IrBinaryExpr: {
            x := int32(f.get(p.X))
            y := int32(f.get(p.Y))
            switch p.Op {
                case IrOpAdd : f.set(p.R, int64(x + y))
                case IrOpSub : f.set(p.R, int64(x - y))
                case IrOpMul : f.set(p.R, int64(x * y))
                case IrOpDiv : f.set(p.R, int64(x / y))
                case IrOpRem : f.set(p.R, int64(x % y))
                case IrOpAnd : f.set(p.R, int64(x & y))
                case IrOpOr  : f.set(p.R, int64(x | y))
                case IrOpXor : f.set(p.R, int64(x ^ y))
                case IrOpShl : f.set(p.R, int64(x << (uint32(y) & 31)))
                case IrOpSar : f.set(p.R, int64(x >> (uint32(y) & 31)))
                case IrCmpEq : f.set(p.R, b2i(x == y))
                case IrCmpNe : f.set(p.R, b2i(x != y))
                case IrCmpLt : f.set(p.R, b2i(x < y))
                case IrCmpLe : f.set(p.R, b2i(x <= y))
                case IrCmpGt : f.set(p.R, b2i(x > y))
                case IrCmpGe : f.set(p.R, b2i(x >= y))
            }
        }

        case *IrCall: {
            in := make([]int64, 0, len(p.In))
            for _, r := range p.In {
                in = append(in, f.get(r))
            }
            ret := self.call(p.Fn, in)
            if p.Out.Kind() != K_zero {
                f.set(p.Out, ret)
            }
        }

        default: {
            panic(fmt.Sprintf("interp: cannot execute %s", v))
        }
    }
}

// interp compiles src through the whole middle end and runs main.
func interp(t *testing.T, src string, in ...int64) string {
    mod := compileModule(t, src)
    m := newMachine(mod, in)
    m.call("main", nil)
    return m.out.String()
}

func TestInterp_Hello(t *testing.T) {
    assert.Equal(t, "hello", interp(t, `
        int main() {
            print("hello");
            return 0;
        }
    `))
}

func TestInterp_FibIterative(t *testing.T) {
    assert.Equal(t, "55\n", interp(t, `
        int main() {
            int a = 0;
            int b = 1;
            for (int i = 0; i < 10; i++) {
                int tt = a + b;
                a = b;
                b = tt;
            }
            printlnInt(a);
            return 0;
        }
    `))
}

func TestInterp_SumOfArray(t *testing.T) {
    assert.Equal(t, "15\n", interp(t, `
        int main() {
            int n = getInt();
            int[] a = new int[n];
            int i;
            for (i = 0; i < n; i++) a[i] = getInt();
            int s = 0;
            for (i = 0; i < n; i++) s = s + a[i];
            printlnInt(s);
            return 0;
        }
    `, 5, 1, 2, 3, 4, 5))
}

func TestInterp_ClassConstructor(t *testing.T) {
    assert.Equal(t, "7\n", interp(t, `
        class P {
            int x;
            P(int v) { x = v; }
        }
        int main() {
            P p = new P(7);
            printlnInt(p.x);
            return 0;
        }
    `))
}

func TestInterp_Concat(t *testing.T) {
    assert.Equal(t, "ab3", interp(t, `
        int main() {
            print("a" + "b" + toString(3));
            return 0;
        }
    `))
}

func TestInterp_SwapLoop(t *testing.T) {
    /* an odd number of swaps through the φ cycle must land exchanged */
    assert.Equal(t, "2\n1\n", interp(t, `
        int main() {
            int a = 1;
            int b = 2;
            for (int i = 0; i < 5; i++) {
                int tt = a;
                a = b;
                b = tt;
            }
            printlnInt(a);
            printlnInt(b);
            return 0;
        }
    `))
}

func TestInterp_SpilledValuesSurvive(t *testing.T) {
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

    in := make([]int64, 0, 30)
    for i := int64(1); i <= 30; i++ {
        in = append(in, i)
    }

    mod := compileModule(t, b.String())
    cfg := mainCFG(t, mod)
    require.Greater(t, cfg.Spills, 0)

    m := newMachine(mod, in)
    m.call("main", nil)
    assert.Equal(t, "465\n", m.out.String())
}

func TestInterp_GlobalInitializers(t *testing.T) {
    assert.Equal(t, "47\n", interp(t, `
        int g = getInt();
        int h = 12;
        int main() {
            printlnInt(g + h);
            return 0;
        }
    `, 35))
}

func TestInterp_Recursion(t *testing.T) {
    assert.Equal(t, "120\n", interp(t, `
        int fact(int n) {
            if (n <= 1) return 1;
            return n * fact(n - 1);
        }
        int main() {
            printlnInt(fact(5));
            return 0;
        }
    `))
}

func TestInterp_StringCompare(t *testing.T) {
    assert.Equal(t, "lt\n", interp(t, `
        int main() {
            if ("abc" < "abd") println("lt"); else println("ge");
            return 0;
        }
    `))
}
