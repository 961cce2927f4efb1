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

package sema

import (
    `fmt`

    `github.com/mxlang/mxc/internal/mx/ast`
)

type Kind uint8

const (
    KInt Kind = iota
    KBool
    KString
    KVoid
    KNull
    KClass
    KArray
)

// Type is an Mx* value type. All values occupy a 4-byte slot; string,
// class and array values are pointers.
type Type struct {
    Kind  Kind
    Class string // KClass only
    Elem  *Type  // KArray only
}

var (
    TInt    = &Type { Kind: KInt }
    TBool   = &Type { Kind: KBool }
    TString = &Type { Kind: KString }
    TVoid   = &Type { Kind: KVoid }
    TNull   = &Type { Kind: KNull }
)

func ClassOf(name string) *Type {
    return &Type { Kind: KClass, Class: name }
}

func ArrayOf(elem *Type) *Type {
    return &Type { Kind: KArray, Elem: elem }
}

func (self *Type) String() string {
    switch self.Kind {
        case KInt    : return "int"
        case KBool   : return "bool"
        case KString : return "string"
        case KVoid   : return "void"
        case KNull   : return "null"
        case KClass  : return self.Class
        case KArray  : return self.Elem.String() + "[]"
        default      : panic("unreachable")
    }
}

// IsRef reports whether values of this type are heap pointers.
func (self *Type) IsRef() bool {
    switch self.Kind {
        case KString, KNull, KClass, KArray:
            return true
        default:
            return false
    }
}

func (self *Type) Same(other *Type) bool {
    if self.Kind != other.Kind {
        return false
    }
    switch self.Kind {
        case KClass : return self.Class == other.Class
        case KArray : return self.Elem.Same(other.Elem)
        default     : return true
    }
}

// AssignableTo reports whether a value of this type can be stored into a
// slot of type dst. null converts to any class or array type.
func (self *Type) AssignableTo(dst *Type) bool {
    if self.Kind == KNull {
        return dst.Kind == KClass || dst.Kind == KArray
    }
    return self.Same(dst)
}

// Var is a declared variable: a global, a local, or a parameter.
type Var struct {
    Name   string
    Type   *Type
    Global bool
}

// Field is a class field with its slot ordinal. Every slot is 4 bytes.
type Field struct {
    Name string
    Type *Type
    Ord  int
}

// Func is a declared function, method, constructor or builtin. Methods take
// the receiver as an implicit parameter zero; Mangled is the emitted symbol.
type Func struct {
    Name    string
    Mangled string
    Ret     *Type
    Params  []*Var
    Class   *Class
    Builtin bool
    Decl    *ast.FuncDecl
}

type Class struct {
    Name    string
    Fields  []*Field
    ByName  map[string]*Field
    Methods map[string]*Func
    Ctor    *Func
}

// Size returns the object size in bytes.
func (self *Class) Size() int64 {
    return int64(len(self.Fields)) * 4
}

// Error is a semantic error with its source position.
type Error struct {
    Pos    fmt.Stringer
    Reason string
}

func (self *Error) Error() string {
    return fmt.Sprintf("%s: %s", self.Pos, self.Reason)
}
