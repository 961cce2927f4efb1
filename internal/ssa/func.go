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
)

// Global is a module-level 4-byte variable. Init is its static image;
// dynamically initialized globals start at zero and are written by __init.
type Global struct {
    Name string
    Init int64
}

// Function owns one CFG. Nargs counts incoming arguments including the
// receiver of methods.
type Function struct {
    Name  string
    Nargs int
    CFG   *CFG
}

// Module owns globals, interned string literals and functions.
type Module struct {
    Globals []*Global
    Strings []string
    Funcs   []*Function

    strtab map[string]int
}

func NewModule() *Module {
    return &Module {
        strtab: make(map[string]int),
    }
}

// InternString deduplicates a string literal and returns its symbol.
func (self *Module) InternString(s string) string {
    i, ok := self.strtab[s]
    if !ok {
        i = len(self.Strings)
        self.strtab[s] = i
        self.Strings = append(self.Strings, s)
    }
    return fmt.Sprintf(".str.%d", i)
}

// FindFunc looks a function up by symbol.
func (self *Module) FindFunc(name string) *Function {
    for _, fn := range self.Funcs {
        if fn.Name == name {
            return fn
        }
    }
    return nil
}
