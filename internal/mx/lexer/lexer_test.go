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

package lexer

import (
    `testing`

    `github.com/mxlang/mxc/internal/mx/token`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
)

func kinds(t *testing.T, src string) []token.Kind {
    tks, err := New(src).ScanAll()
    require.NoError(t, err)
    ret := make([]token.Kind, 0, len(tks))
    for _, tk := range tks {
        ret = append(ret, tk.Kind)
    }
    return ret
}

func TestLexer_Scan(t *testing.T) {
    assert.Equal(t, []token.Kind {
        token.KwInt, token.Ident, token.LParen, token.RParen, token.LBrace,
        token.KwReturn, token.Int, token.Semi,
        token.RBrace, token.EOF,
    }, kinds(t, "int main() { return 0; }"))
}

func TestLexer_Operators(t *testing.T) {
    assert.Equal(t, []token.Kind {
        token.Inc, token.Plus, token.Dec, token.Minus, token.Shl, token.Le,
        token.Lt, token.Shr, token.Ge, token.Gt, token.Eq, token.Assign,
        token.Ne, token.Not, token.AndAnd, token.And, token.OrOr, token.Or,
        token.EOF,
    }, kinds(t, "++ + -- - << <= < >> >= > == = != ! && & || |"))
}

func TestLexer_Comments(t *testing.T) {
    assert.Equal(t, []token.Kind {
        token.Ident, token.Ident, token.EOF,
    }, kinds(t, "a // line\n/* block\nstill */ b"))
}

func TestLexer_Strings(t *testing.T) {
    tks, err := New(`"a\nb\"c\\"`).ScanAll()
    require.NoError(t, err)
    require.Equal(t, token.Str, tks[0].Kind)
    assert.Equal(t, "a\nb\"c\\", tks[0].Lit)
}

func TestLexer_IntRange(t *testing.T) {
    tks, err := New("2147483648").ScanAll()
    require.NoError(t, err)
    assert.Equal(t, int64(2147483648), tks[0].Val)

    _, err = New("99999999999").ScanAll()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "out of range")
}

func TestLexer_Position(t *testing.T) {
    tks, err := New("a\n  b").ScanAll()
    require.NoError(t, err)
    assert.Equal(t, token.Pos { Line: 1, Col: 1 }, tks[0].Pos)
    assert.Equal(t, token.Pos { Line: 2, Col: 3 }, tks[1].Pos)
}

func TestLexer_BadChar(t *testing.T) {
    _, err := New("int @").ScanAll()
    require.Error(t, err)
    assert.Contains(t, err.Error(), "unexpected character")
}
