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

type Pass interface {
    Apply(*CFG)
}

type PassDescriptor struct {
    Pass Pass
    Name string
    SSA  bool // the CFG is in SSA form once this pass completes
}

var Passes = [...]PassDescriptor {
    { Name: "Critical Edge Splitting"         , Pass: new(SplitCritical) },
    { Name: "Memory to Register Promotion"    , Pass: new(Mem2Reg), SSA: true },
    { Name: "Trivial Dead Code Elimination"   , Pass: new(TDCE), SSA: true },
    { Name: "Register Allocation"             , Pass: new(RegAlloc) },    // the CFG is no longer in SSA form after this pass
    { Name: "Phi Elimination"                 , Pass: new(PhiElim) },
}

// DumpHook, when set, observes the CFG of fn after every pass.
var DumpHook func(pass string, fn *Function)

func executePasses(fn *Function) {
    for _, p := range Passes {
        p.Pass.Apply(fn.CFG)
        verifyCFG(fn.Name, fn.CFG)
        if p.SSA {
            verifySSA(fn.Name, fn.CFG)
        }
        if DumpHook != nil {
            DumpHook(p.Name, fn)
        }
    }
}

// Compile runs the whole middle end over every function: after it returns,
// no virtual register and no φ node remains anywhere in the module.
func (self *Module) Compile() {
    for _, fn := range self.Funcs {
        executePasses(fn)
    }
}
