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

package token

import (
    `fmt`
)

type Kind uint8

const (
    EOF Kind = iota
    Ident
    Int
    Str

    /* keywords */
    KwInt
    KwBool
    KwString
    KwVoid
    KwClass
    KwNew
    KwIf
    KwElse
    KwWhile
    KwFor
    KwReturn
    KwBreak
    KwContinue
    KwTrue
    KwFalse
    KwNull
    KwThis

    /* punctuation */
    LParen
    RParen
    LBrace
    RBrace
    LBracket
    RBracket
    Semi
    Comma
    Dot
    Assign
    Plus
    Minus
    Star
    Slash
    Percent
    Lt
    Gt
    Le
    Ge
    Eq
    Ne
    Not
    AndAnd
    OrOr
    And
    Or
    Xor
    Tilde
    Shl
    Shr
    Inc
    Dec
    Question
    Colon
)

var Keywords = map[string]Kind {
    "int"      : KwInt,
    "bool"     : KwBool,
    "string"   : KwString,
    "void"     : KwVoid,
    "class"    : KwClass,
    "new"      : KwNew,
    "if"       : KwIf,
    "else"     : KwElse,
    "while"    : KwWhile,
    "for"      : KwFor,
    "return"   : KwReturn,
    "break"    : KwBreak,
    "continue" : KwContinue,
    "true"     : KwTrue,
    "false"    : KwFalse,
    "null"     : KwNull,
    "this"     : KwThis,
}

var names = map[Kind]string {
    EOF      : "end of input",
    Ident    : "identifier",
    Int      : "integer literal",
    Str      : "string literal",
    LParen   : "'('",
    RParen   : "')'",
    LBrace   : "'{'",
    RBrace   : "'}'",
    LBracket : "'['",
    RBracket : "']'",
    Semi     : "';'",
    Comma    : "','",
    Dot      : "'.'",
    Assign   : "'='",
    Plus     : "'+'",
    Minus    : "'-'",
    Star     : "'*'",
    Slash    : "'/'",
    Percent  : "'%'",
    Lt       : "'<'",
    Gt       : "'>'",
    Le       : "'<='",
    Ge       : "'>='",
    Eq       : "'=='",
    Ne       : "'!='",
    Not      : "'!'",
    AndAnd   : "'&&'",
    OrOr     : "'||'",
    And      : "'&'",
    Or       : "'|'",
    Xor      : "'^'",
    Tilde    : "'~'",
    Shl      : "'<<'",
    Shr      : "'>>'",
    Inc      : "'++'",
    Dec      : "'--'",
    Question : "'?'",
    Colon    : "':'",
}

func (self Kind) String() string {
    if v, ok := names[self]; ok {
        return v
    }
    for s, k := range Keywords {
        if k == self {
            return "'" + s + "'"
        }
    }
    return fmt.Sprintf("token(%d)", self)
}

// Pos is a 1-based source position.
type Pos struct {
    Line int
    Col  int
}

func (self Pos) String() string {
    return fmt.Sprintf("%d:%d", self.Line, self.Col)
}

type Token struct {
    Kind Kind
    Pos  Pos
    Lit  string
    Val  int64
}
