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
    `fmt`

    `github.com/mxlang/mxc/internal/mx/ast`
    `github.com/mxlang/mxc/internal/mx/lexer`
    `github.com/mxlang/mxc/internal/mx/token`
)

// Error is a syntax error with its source position.
type Error struct {
    Pos    token.Pos
    Reason string
}

func (self *Error) Error() string {
    return fmt.Sprintf("%s: %s", self.Pos, self.Reason)
}

type Parser struct {
    tk []token.Token
    at int
}

// Parse tokenizes and parses a whole program.
func Parse(src string) (*ast.Program, error) {
    tk, err := lexer.New(src).ScanAll()
    if err != nil {
        return nil, err
    }
    p := &Parser { tk: tk }
    return p.program()
}

func (self *Parser) cur() token.Token {
    return self.tk[self.at]
}

func (self *Parser) is(k token.Kind) bool {
    return self.tk[self.at].Kind == k
}

func (self *Parser) next() token.Token {
    tk := self.tk[self.at]
    if tk.Kind != token.EOF {
        self.at++
    }
    return tk
}

func (self *Parser) accept(k token.Kind) bool {
    if self.is(k) {
        self.next()
        return true
    }
    return false
}

func (self *Parser) expect(k token.Kind) (token.Token, error) {
    if self.is(k) {
        return self.next(), nil
    }
    return token.Token{}, &Error {
        Pos    : self.cur().Pos,
        Reason : fmt.Sprintf("expected %s, found %s", k, self.cur().Kind),
    }
}

func istypestart(k token.Kind) bool {
    switch k {
        case token.KwInt, token.KwBool, token.KwString, token.KwVoid, token.Ident:
            return true
        default:
            return false
    }
}

func (self *Parser) program() (*ast.Program, error) {
    ret := new(ast.Program)

    /* parse all top-level declarations */
    for !self.is(token.EOF) {
        d, err := self.topdecl()
        if err != nil {
            return nil, err
        }
        ret.Decls = append(ret.Decls, d)
    }
    return ret, nil
}

func (self *Parser) topdecl() (ast.Decl, error) {
    if self.is(token.KwClass) {
        return self.classdecl()
    }

    /* a type, then an identifier, then either a function or variables */
    ty, err := self.typeexpr()
    if err != nil {
        return nil, err
    }
    name, err := self.expect(token.Ident)
    if err != nil {
        return nil, err
    }
    if self.is(token.LParen) {
        return self.funcdecl(ty, name)
    }
    return self.vardecl(ty, name)
}

func (self *Parser) typeexpr() (*ast.TypeExpr, error) {
    var name string
    tk := self.cur()

    /* base type name */
    switch tk.Kind {
        case token.KwInt    : name = "int"
        case token.KwBool   : name = "bool"
        case token.KwString : name = "string"
        case token.KwVoid   : name = "void"
        case token.Ident    : name = tk.Lit
        default             : return nil, &Error { Pos: tk.Pos, Reason: "expected a type, found " + tk.Kind.String() }
    }
    self.next()

    /* array dimensions */
    dims := 0
    for self.is(token.LBracket) && self.tk[self.at + 1].Kind == token.RBracket {
        self.next()
        self.next()
        dims++
    }
    return &ast.TypeExpr { P: tk.Pos, Name: name, Dims: dims }, nil
}

func (self *Parser) funcdecl(ret *ast.TypeExpr, name token.Token) (*ast.FuncDecl, error) {
    params, err := self.params()
    if err != nil {
        return nil, err
    }
    body, err := self.block()
    if err != nil {
        return nil, err
    }
    return &ast.FuncDecl {
        P      : name.Pos,
        Ret    : ret,
        Name   : name.Lit,
        Params : params,
        Body   : body,
    }, nil
}

func (self *Parser) params() ([]ast.Param, error) {
    var ret []ast.Param
    if _, err := self.expect(token.LParen); err != nil {
        return nil, err
    }
    for !self.is(token.RParen) {
        if len(ret) != 0 {
            if _, err := self.expect(token.Comma); err != nil {
                return nil, err
            }
        }
        ty, err := self.typeexpr()
        if err != nil {
            return nil, err
        }
        name, err := self.expect(token.Ident)
        if err != nil {
            return nil, err
        }
        ret = append(ret, ast.Param { P: name.Pos, Type: ty, Name: name.Lit })
    }
    self.next()
    return ret, nil
}

func (self *Parser) vardecl(ty *ast.TypeExpr, name token.Token) (*ast.VarDecl, error) {
    d := &ast.VarDecl { P: ty.P, Type: ty }
    tk := name

    /* one or more comma-separated items */
    for {
        item := ast.VarItem { P: tk.Pos, Name: tk.Lit }
        if self.accept(token.Assign) {
            init, err := self.assignexpr()
            if err != nil {
                return nil, err
            }
            item.Init = init
        }
        d.Items = append(d.Items, item)
        if !self.accept(token.Comma) {
            break
        }
        var err error
        if tk, err = self.expect(token.Ident); err != nil {
            return nil, err
        }
    }

    if _, err := self.expect(token.Semi); err != nil {
        return nil, err
    }
    return d, nil
}

func (self *Parser) classdecl() (*ast.ClassDecl, error) {
    pos := self.next().Pos
    name, err := self.expect(token.Ident)
    if err != nil {
        return nil, err
    }
    if _, err = self.expect(token.LBrace); err != nil {
        return nil, err
    }
    ret := &ast.ClassDecl { P: pos, Name: name.Lit }

    /* members until the closing brace */
    for !self.is(token.RBrace) {
        /* constructor: class name immediately followed by '(' */
        if self.is(token.Ident) && self.cur().Lit == name.Lit && self.tk[self.at + 1].Kind == token.LParen {
            ctor := self.next()
            fn, err := self.funcdecl(nil, ctor)
            if err != nil {
                return nil, err
            }
            if ret.Ctor != nil {
                return nil, &Error { Pos: ctor.Pos, Reason: "duplicate constructor for class " + name.Lit }
            }
            ret.Ctor = fn
            continue
        }

        ty, err := self.typeexpr()
        if err != nil {
            return nil, err
        }
        mem, err := self.expect(token.Ident)
        if err != nil {
            return nil, err
        }
        if self.is(token.LParen) {
            fn, err := self.funcdecl(ty, mem)
            if err != nil {
                return nil, err
            }
            ret.Methods = append(ret.Methods, fn)
        } else {
            vd, err := self.vardecl(ty, mem)
            if err != nil {
                return nil, err
            }
            ret.Fields = append(ret.Fields, vd)
        }
    }

    self.next()
    self.accept(token.Semi)
    return ret, nil
}

func (self *Parser) block() (*ast.Block, error) {
    lb, err := self.expect(token.LBrace)
    if err != nil {
        return nil, err
    }
    ret := &ast.Block { P: lb.Pos }
    for !self.is(token.RBrace) {
        s, err := self.stmt()
        if err != nil {
            return nil, err
        }
        ret.Stmts = append(ret.Stmts, s)
    }
    self.next()
    return ret, nil
}

func (self *Parser) stmt() (ast.Stmt, error) {
    switch tk := self.cur(); tk.Kind {
        case token.LBrace: {
            return self.block()
        }

        case token.Semi: {
            self.next()
            return &ast.Block { P: tk.Pos }, nil
        }

        case token.KwIf: {
            self.next()
            if _, err := self.expect(token.LParen); err != nil {
                return nil, err
            }
            cond, err := self.expr()
            if err != nil {
                return nil, err
            }
            if _, err = self.expect(token.RParen); err != nil {
                return nil, err
            }
            then, err := self.stmt()
            if err != nil {
                return nil, err
            }
            ret := &ast.If { P: tk.Pos, Cond: cond, Then: then }
            if self.accept(token.KwElse) {
                if ret.Else, err = self.stmt(); err != nil {
                    return nil, err
                }
            }
            return ret, nil
        }

        case token.KwWhile: {
            self.next()
            if _, err := self.expect(token.LParen); err != nil {
                return nil, err
            }
            cond, err := self.expr()
            if err != nil {
                return nil, err
            }
            if _, err = self.expect(token.RParen); err != nil {
                return nil, err
            }
            body, err := self.stmt()
            if err != nil {
                return nil, err
            }
            return &ast.While { P: tk.Pos, Cond: cond, Body: body }, nil
        }

        case token.KwFor: {
            return self.forstmt()
        }

        case token.KwReturn: {
            self.next()
            ret := &ast.Return { P: tk.Pos }
            if !self.is(token.Semi) {
                x, err := self.expr()
                if err != nil {
                    return nil, err
                }
                ret.X = x
            }
            if _, err := self.expect(token.Semi); err != nil {
                return nil, err
            }
            return ret, nil
        }

        case token.KwBreak: {
            self.next()
            if _, err := self.expect(token.Semi); err != nil {
                return nil, err
            }
            return &ast.Break { P: tk.Pos }, nil
        }

        case token.KwContinue: {
            self.next()
            if _, err := self.expect(token.Semi); err != nil {
                return nil, err
            }
            return &ast.Continue { P: tk.Pos }, nil
        }
    }

    /* variable declaration or expression statement */
    if d, ok, err := self.maybedecl(); err != nil {
        return nil, err
    } else if ok {
        return &ast.DeclStmt { D: d }, nil
    }

    pos := self.cur().Pos
    x, err := self.expr()
    if err != nil {
        return nil, err
    }
    if _, err = self.expect(token.Semi); err != nil {
        return nil, err
    }
    return &ast.ExprStmt { P: pos, X: x }, nil
}

// maybedecl decides between a declaration and an expression statement.
// A statement is a declaration iff it starts with a type followed by an
// identifier (int x, Foo[] y, Foo z).
func (self *Parser) maybedecl() (*ast.VarDecl, bool, error) {
    if !istypestart(self.cur().Kind) {
        return nil, false, nil
    }

    /* "ident ident" or "ident [ ] ... ident" needs lookahead */
    if self.is(token.Ident) {
        i := self.at + 1
        for self.tk[i].Kind == token.LBracket && self.tk[i + 1].Kind == token.RBracket {
            i += 2
        }
        if self.tk[i].Kind != token.Ident {
            return nil, false, nil
        }
    }

    ty, err := self.typeexpr()
    if err != nil {
        return nil, false, err
    }
    name, err := self.expect(token.Ident)
    if err != nil {
        return nil, false, err
    }
    d, err := self.vardecl(ty, name)
    if err != nil {
        return nil, false, err
    }
    return d, true, nil
}

func (self *Parser) forstmt() (ast.Stmt, error) {
    tk := self.next()
    if _, err := self.expect(token.LParen); err != nil {
        return nil, err
    }
    ret := &ast.For { P: tk.Pos }

    /* init clause */
    if !self.accept(token.Semi) {
        if d, ok, err := self.maybedecl(); err != nil {
            return nil, err
        } else if ok {
            ret.Init = &ast.DeclStmt { D: d }
        } else {
            pos := self.cur().Pos
            x, err := self.expr()
            if err != nil {
                return nil, err
            }
            if _, err = self.expect(token.Semi); err != nil {
                return nil, err
            }
            ret.Init = &ast.ExprStmt { P: pos, X: x }
        }
    }

    /* condition clause */
    if !self.is(token.Semi) {
        x, err := self.expr()
        if err != nil {
            return nil, err
        }
        ret.Cond = x
    }
    if _, err := self.expect(token.Semi); err != nil {
        return nil, err
    }

    /* step clause */
    if !self.is(token.RParen) {
        x, err := self.expr()
        if err != nil {
            return nil, err
        }
        ret.Step = x
    }
    if _, err := self.expect(token.RParen); err != nil {
        return nil, err
    }

    body, err := self.stmt()
    if err != nil {
        return nil, err
    }
    ret.Body = body
    return ret, nil
}

func (self *Parser) expr() (ast.Expr, error) {
    return self.assignexpr()
}

func (self *Parser) assignexpr() (ast.Expr, error) {
    lhs, err := self.ternary()
    if err != nil {
        return nil, err
    }
    if tk := self.cur(); tk.Kind == token.Assign {
        self.next()
        rhs, err := self.assignexpr()
        if err != nil {
            return nil, err
        }
        return &ast.Assign { P: tk.Pos, L: lhs, R: rhs }, nil
    }
    return lhs, nil
}

func (self *Parser) ternary() (ast.Expr, error) {
    cond, err := self.binary(0)
    if err != nil {
        return nil, err
    }
    if tk := self.cur(); tk.Kind == token.Question {
        self.next()
        x, err := self.assignexpr()
        if err != nil {
            return nil, err
        }
        if _, err = self.expect(token.Colon); err != nil {
            return nil, err
        }
        y, err := self.assignexpr()
        if err != nil {
            return nil, err
        }
        return &ast.Ternary { P: tk.Pos, C: cond, X: x, Y: y }, nil
    }
    return cond, nil
}

type binlevel struct {
    tok token.Kind
    op  ast.BinOp
}

// binary operator precedence, loosest first
var binlevels = [][]binlevel {
    {{ token.OrOr, ast.OpLOr }},
    {{ token.AndAnd, ast.OpLAnd }},
    {{ token.Or, ast.OpOr }},
    {{ token.Xor, ast.OpXor }},
    {{ token.And, ast.OpAnd }},
    {{ token.Eq, ast.OpEq }, { token.Ne, ast.OpNe }},
    {{ token.Lt, ast.OpLt }, { token.Gt, ast.OpGt }, { token.Le, ast.OpLe }, { token.Ge, ast.OpGe }},
    {{ token.Shl, ast.OpShl }, { token.Shr, ast.OpShr }},
    {{ token.Plus, ast.OpAdd }, { token.Minus, ast.OpSub }},
    {{ token.Star, ast.OpMul }, { token.Slash, ast.OpDiv }, { token.Percent, ast.OpRem }},
}

func (self *Parser) binary(level int) (ast.Expr, error) {
    if level == len(binlevels) {
        return self.unary()
    }
    lhs, err := self.binary(level + 1)
    if err != nil {
        return nil, err
    }
    for {
        var op ast.BinOp
        var hit bool
        tk := self.cur()
        for _, lv := range binlevels[level] {
            if tk.Kind == lv.tok {
                op, hit = lv.op, true
                break
            }
        }
        if !hit {
            return lhs, nil
        }
        self.next()
        rhs, err := self.binary(level + 1)
        if err != nil {
            return nil, err
        }
        lhs = &ast.Binary { P: tk.Pos, Op: op, X: lhs, Y: rhs }
    }
}

func (self *Parser) unary() (ast.Expr, error) {
    tk := self.cur()
    var op ast.UnaryOp

    switch tk.Kind {
        case token.Minus : op = ast.UnNeg
        case token.Not   : op = ast.UnNot
        case token.Tilde : op = ast.UnInv
        case token.Inc   : op = ast.UnPreInc
        case token.Dec   : op = ast.UnPreDec
        default          : return self.postfix()
    }

    self.next()
    x, err := self.unary()
    if err != nil {
        return nil, err
    }
    return &ast.Unary { P: tk.Pos, Op: op, X: x }, nil
}

func (self *Parser) postfix() (ast.Expr, error) {
    x, err := self.primary()
    if err != nil {
        return nil, err
    }
    for {
        switch tk := self.cur(); tk.Kind {
            case token.Inc: {
                self.next()
                x = &ast.Unary { P: tk.Pos, Op: ast.UnPostInc, X: x }
            }

            case token.Dec: {
                self.next()
                x = &ast.Unary { P: tk.Pos, Op: ast.UnPostDec, X: x }
            }

            case token.Dot: {
                self.next()
                name, err := self.expect(token.Ident)
                if err != nil {
                    return nil, err
                }
                x = &ast.Member { P: tk.Pos, X: x, Name: name.Lit }
            }

            case token.LBracket: {
                self.next()
                i, err := self.expr()
                if err != nil {
                    return nil, err
                }
                if _, err = self.expect(token.RBracket); err != nil {
                    return nil, err
                }
                x = &ast.Index { P: tk.Pos, X: x, I: i }
            }

            case token.LParen: {
                args, err := self.args()
                if err != nil {
                    return nil, err
                }
                x = &ast.Call { P: tk.Pos, Fn: x, Args: args }
            }

            default: {
                return x, nil
            }
        }
    }
}

func (self *Parser) args() ([]ast.Expr, error) {
    var ret []ast.Expr
    self.next()
    for !self.is(token.RParen) {
        if len(ret) != 0 {
            if _, err := self.expect(token.Comma); err != nil {
                return nil, err
            }
        }
        x, err := self.assignexpr()
        if err != nil {
            return nil, err
        }
        ret = append(ret, x)
    }
    self.next()
    return ret, nil
}

func (self *Parser) primary() (ast.Expr, error) {
    switch tk := self.cur(); tk.Kind {
        case token.Int: {
            self.next()
            return &ast.IntLit { P: tk.Pos, V: tk.Val }, nil
        }

        case token.Str: {
            self.next()
            return &ast.StrLit { P: tk.Pos, V: tk.Lit }, nil
        }

        case token.KwTrue: {
            self.next()
            return &ast.BoolLit { P: tk.Pos, V: true }, nil
        }

        case token.KwFalse: {
            self.next()
            return &ast.BoolLit { P: tk.Pos, V: false }, nil
        }

        case token.KwNull: {
            self.next()
            return &ast.NullLit { P: tk.Pos }, nil
        }

        case token.KwThis: {
            self.next()
            return &ast.ThisLit { P: tk.Pos }, nil
        }

        case token.Ident: {
            self.next()
            return &ast.Ident { P: tk.Pos, Name: tk.Lit }, nil
        }

        case token.KwNew: {
            return self.newexpr()
        }

        case token.LParen: {
            self.next()
            x, err := self.expr()
            if err != nil {
                return nil, err
            }
            if _, err = self.expect(token.RParen); err != nil {
                return nil, err
            }
            return x, nil
        }
    }

    return nil, &Error {
        Pos    : self.cur().Pos,
        Reason : "expected an expression, found " + self.cur().Kind.String(),
    }
}

func (self *Parser) newexpr() (ast.Expr, error) {
    tk := self.next()

    /* base type of the allocation */
    var name string
    switch bt := self.cur(); bt.Kind {
        case token.KwInt    : name = "int"
        case token.KwBool   : name = "bool"
        case token.KwString : name = "string"
        case token.Ident    : name = bt.Lit
        default             : return nil, &Error { Pos: bt.Pos, Reason: "expected a type after 'new'" }
    }
    self.next()

    /* object allocation, with optional constructor arguments */
    if !self.is(token.LBracket) {
        var err error
        var args []ast.Expr
        if self.is(token.LParen) {
            if args, err = self.args(); err != nil {
                return nil, err
            }
        }
        return &ast.New {
            P    : tk.Pos,
            Type : &ast.TypeExpr { P: tk.Pos, Name: name },
            Args : args,
        }, nil
    }

    /* array allocation: sized dimensions must precede empty ones */
    var dims int
    var done bool
    var sizes []ast.Expr

    for self.is(token.LBracket) {
        self.next()
        dims++

        /* an empty pair closes the sized prefix */
        if self.accept(token.RBracket) {
            done = true
            continue
        }
        if done {
            return nil, &Error { Pos: tk.Pos, Reason: "sized array dimension after an unsized one" }
        }
        n, err := self.expr()
        if err != nil {
            return nil, err
        }
        if _, err = self.expect(token.RBracket); err != nil {
            return nil, err
        }
        sizes = append(sizes, n)
    }

    if len(sizes) == 0 {
        return nil, &Error { Pos: tk.Pos, Reason: "array allocation needs at least one size" }
    }
    return &ast.New {
        P     : tk.Pos,
        Type  : &ast.TypeExpr { P: tk.Pos, Name: name, Dims: dims },
        Sizes : sizes,
    }, nil
}
