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

package parser

import (
    `os`
    `testing`

    `github.com/mxlang/mxc/internal/mx/ast`
    `github.com/stretchr/testify/assert`
    `github.com/stretchr/testify/require`
    `gopkg.in/yaml.v3`
)

type _DeclSpec struct {
    Kind string `yaml:"kind"`
    Name string `yaml:"name"`
}

type _TestSpec struct {
    Name  string      `yaml:"name"`
    Input string      `yaml:"input"`
    Decls []_DeclSpec `yaml:"decls"`
    Error string      `yaml:"error"`
}

type _TestFile struct {
    Tests []_TestSpec `yaml:"tests"`
}

func TestParser_YAML(t *testing.T) {
    data, err := os.ReadFile("../../../testdata/parse.yaml")
    require.NoError(t, err)

    var tf _TestFile
    require.NoError(t, yaml.Unmarshal(data, &tf))
    require.NotEmpty(t, tf.Tests)

    for _, tc := range tf.Tests {
        t.Run(tc.Name, func(t *testing.T) {
            prog, err := Parse(tc.Input)

            /* failing cases assert on the message only */
            if tc.Error != "" {
                require.Error(t, err)
                assert.Contains(t, err.Error(), tc.Error)
                return
            }
            require.NoError(t, err)
            require.Len(t, prog.Decls, len(tc.Decls))

            for i, want := range tc.Decls {
                switch d := prog.Decls[i].(type) {
                    case *ast.FuncDecl: {
                        assert.Equal(t, "func", want.Kind)
                        assert.Equal(t, want.Name, d.Name)
                    }

                    case *ast.VarDecl: {
                        assert.Equal(t, "var", want.Kind)
                        assert.Equal(t, want.Name, d.Items[0].Name)
                    }

                    case *ast.ClassDecl: {
                        assert.Equal(t, "class", want.Kind)
                        assert.Equal(t, want.Name, d.Name)
                    }
                }
            }
        })
    }
}

func TestParser_Precedence(t *testing.T) {
    prog, err := Parse("int main() { return 1 + 2 * 3; }")
    require.NoError(t, err)

    fn := prog.Decls[0].(*ast.FuncDecl)
    ret := fn.Body.Stmts[0].(*ast.Return)
    add := ret.X.(*ast.Binary)
    require.Equal(t, ast.OpAdd, add.Op)

    mul := add.Y.(*ast.Binary)
    assert.Equal(t, ast.OpMul, mul.Op)
}

func TestParser_AssignRightAssoc(t *testing.T) {
    prog, err := Parse("int main() { int a; int b; a = b = 1; return a; }")
    require.NoError(t, err)

    fn := prog.Decls[0].(*ast.FuncDecl)
    as := fn.Body.Stmts[2].(*ast.ExprStmt).X.(*ast.Assign)
    _, inner := as.R.(*ast.Assign)
    assert.True(t, inner)
}

func TestParser_NewCtorArgs(t *testing.T) {
    prog, err := Parse("int main() { P p = new P(7); return 0; }")
    require.NoError(t, err)

    fn := prog.Decls[0].(*ast.FuncDecl)
    ds := fn.Body.Stmts[0].(*ast.DeclStmt)
    nw := ds.D.Items[0].Init.(*ast.New)
    require.Len(t, nw.Args, 1)
    assert.Equal(t, int64(7), nw.Args[0].(*ast.IntLit).V)
}

func TestParser_MemberChain(t *testing.T) {
    prog, err := Parse("int main() { return a.b.c().d; }")
    require.NoError(t, err)

    fn := prog.Decls[0].(*ast.FuncDecl)
    ret := fn.Body.Stmts[0].(*ast.Return)
    m := ret.X.(*ast.Member)
    require.Equal(t, "d", m.Name)

    call := m.X.(*ast.Call)
    cm := call.Fn.(*ast.Member)
    assert.Equal(t, "c", cm.Name)
}
