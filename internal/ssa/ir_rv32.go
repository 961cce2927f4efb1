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

// RV32I integer register file. Physical registers enter the IR as
// precolored K_arch nodes during allocation and replace every virtual
// register after coloring.

// ArchReg returns the physical register xN.
func ArchReg(n int) Reg {
    return mkreg(0, K_arch, n)
}

var (
    Xzero = ArchReg(0)
    Xra   = ArchReg(1)
    Xsp   = ArchReg(2)
    Xgp   = ArchReg(3)
    Xtp   = ArchReg(4)
    Xt0   = ArchReg(5)
    Xt1   = ArchReg(6)
)

var ArchRegNames = [32]string {
    "zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
    "s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
    "a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
    "s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// UsableRegs are the registers not claimed by the RISC-V platform ABI
// (zero, ra, sp, gp, tp): the t-, s- and a-register files.
var UsableRegs = [27]int {
    10, 11, 12, 13, 14, 15, 16, 17,     // a0-a7
    5, 6, 7, 28, 29, 30, 31,            // t0-t6
    8, 9, 18, 19, 20, 21, 22, 23,       // s0-s7
    24, 25, 26, 27,                     // s8-s11
}

// ScratchReg and MemScratchReg are carved out of the usable set: the former
// breaks parallel-copy cycles, the latter addresses far stack slots.
var (
    ScratchReg    = Xt0
    MemScratchReg = Xt1
)

// Colors is the allocatable palette, caller-saved first so short-lived
// values prefer registers with no save cost.
var Colors = func() []Reg {
    ret := make([]Reg, 0, len(UsableRegs))
    for _, n := range UsableRegs {
        if r := ArchReg(n); r != ScratchReg && r != MemScratchReg {
            ret = append(ret, r)
        }
    }
    return ret
}()

// CallerSavedRegs are clobbered by a call under the standard ABI.
var CallerSavedRegs = func() []Reg {
    ns := []int { 5, 6, 7, 28, 29, 30, 31, 10, 11, 12, 13, 14, 15, 16, 17 }
    ret := make([]Reg, 0, len(ns))
    for _, n := range ns {
        ret = append(ret, ArchReg(n))
    }
    return ret
}()

// CalleeSavedRegs must be preserved across calls: s0-s11.
var CalleeSavedRegs = func() []Reg {
    ns := []int { 8, 9, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27 }
    ret := make([]Reg, 0, len(ns))
    for _, n := range ns {
        ret = append(ret, ArchReg(n))
    }
    return ret
}()

var calleeSavedSet = func() map[Reg]struct{} {
    ret := make(map[Reg]struct{}, len(CalleeSavedRegs))
    for _, r := range CalleeSavedRegs {
        ret[r] = struct{}{}
    }
    return ret
}()

// IsCalleeSaved reports whether r is a callee-saved physical register.
func IsCalleeSaved(r Reg) bool {
    _, ok := calleeSavedSet[r]
    return ok
}

// ArgReg returns the physical register carrying argument i, or the zero
// register when the argument travels on the stack.
func ArgReg(i int) Reg {
    if i < 8 {
        return ArchReg(10 + i)
    } else {
        return Rz
    }
}

// MaxRegArgs is the number of arguments passed in registers.
const MaxRegArgs = 8
