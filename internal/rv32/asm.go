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

// Package rv32 materializes colored, φ-free IR as RV32IM assembly text
// with GNU-style directives, linkable against the shipped runtime.
package rv32

import (
    `fmt`
    `strings`
)

type _Asm struct {
    buf []string
}

func (self *_Asm) raw(s string) {
    self.buf = append(self.buf, s)
}

func (self *_Asm) label(name string) {
    self.buf = append(self.buf, name + ":")
}

func (self *_Asm) dir(format string, args ...interface{}) {
    self.buf = append(self.buf, "    " + fmt.Sprintf(format, args...))
}

func (self *_Asm) ins(format string, args ...interface{}) {
    self.buf = append(self.buf, "    " + fmt.Sprintf(format, args...))
}

func (self *_Asm) String() string {
    return strings.Join(self.buf, "\n") + "\n"
}

// asciz escapes a string literal for the .asciz directive.
func asciz(s string) string {
    var b strings.Builder
    b.WriteByte('"')
    for i := 0; i < len(s); i++ {
        switch c := s[i]; {
            case c == '"'            : b.WriteString("\\\"")
            case c == '\\'           : b.WriteString("\\\\")
            case c == '\n'           : b.WriteString("\\n")
            case c == '\t'           : b.WriteString("\\t")
            case c >= 0x20 && c < 0x7f : b.WriteByte(c)
            default                  : b.WriteString(fmt.Sprintf("\\%03o", c))
        }
    }
    b.WriteByte('"')
    return b.String()
}

// fitsImm12 reports whether v fits a signed 12-bit immediate.
func fitsImm12(v int64) bool {
    return v >= -2048 && v <= 2047
}

// splitImm32 decomposes v into a lui/addi pair: v == (hi << 12) + lo with
// lo sign-extended.
func splitImm32(v int64) (hi int64, lo int64) {
    up := (v + 0x800) >> 12
    lo = v - (up << 12)
    hi = up & 0xfffff
    return
}
