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

// GlobalInit pairs a global variable with its initializer expression, in
// declaration order.
type GlobalInit struct {
    V *Var
    X ast.Expr
}

// Info is the result of checking: every expression typed, every name bound.
// The IR builder consumes it read-only.
type Info struct {
    Types      map[ast.Expr]*Type
    Uses       map[*ast.Ident]*Var
    FieldUses  map[*ast.Ident]*Field // unqualified field access inside methods
    Members    map[*ast.Member]*Field
    Calls      map[*ast.Call]*Func
    Classes    map[string]*Class
    Funcs      map[string]*Func // by mangled symbol
    Globals    []*Var
    GlobalInit []GlobalInit
    VarOf      map[*ast.VarItem]*Var
    ParamOf    map[*ast.FuncDecl][]*Var
}

type checker struct {
    info   *Info
    fn     *Func
    class  *Class
    loops  int
    scopes []map[string]*Var
}

var strMethods = map[string]*Func {
    "length"    : { Name: "length",    Mangled: "string.length",    Ret: TInt,    Builtin: true },
    "substring" : { Name: "substring", Mangled: "string.substring", Ret: TString, Builtin: true, Params: []*Var {{ Name: "l", Type: TInt }, { Name: "r", Type: TInt }} },
    "parseInt"  : { Name: "parseInt",  Mangled: "string.parseInt",  Ret: TInt,    Builtin: true },
    "ord"       : { Name: "ord",       Mangled: "string.ord",       Ret: TInt,    Builtin: true, Params: []*Var {{ Name: "i", Type: TInt }} },
}

var arraySize = &Func {
    Name    : "size",
    Mangled : "__array_size",
    Ret     : TInt,
    Builtin : true,
}

func builtins() map[string]*Func {
    return map[string]*Func {
        "print"      : { Name: "print",      Mangled: "print",      Ret: TVoid,   Builtin: true, Params: []*Var {{ Name: "s", Type: TString }} },
        "println"    : { Name: "println",    Mangled: "println",    Ret: TVoid,   Builtin: true, Params: []*Var {{ Name: "s", Type: TString }} },
        "printInt"   : { Name: "printInt",   Mangled: "printInt",   Ret: TVoid,   Builtin: true, Params: []*Var {{ Name: "n", Type: TInt }} },
        "printlnInt" : { Name: "printlnInt", Mangled: "printlnInt", Ret: TVoid,   Builtin: true, Params: []*Var {{ Name: "n", Type: TInt }} },
        "getInt"     : { Name: "getInt",     Mangled: "getInt",     Ret: TInt,    Builtin: true },
        "getString"  : { Name: "getString",  Mangled: "getString",  Ret: TString, Builtin: true },
        "toString"   : { Name: "toString",   Mangled: "toString",   Ret: TString, Builtin: true, Params: []*Var {{ Name: "n", Type: TInt }} },
    }
}

// Check resolves and type-checks a program.
func Check(prog *ast.Program) (*Info, error) {
    c := &checker {
        info: &Info {
            Types     : make(map[ast.Expr]*Type),
            Uses      : make(map[*ast.Ident]*Var),
            FieldUses : make(map[*ast.Ident]*Field),
            Members   : make(map[*ast.Member]*Field),
            Calls     : make(map[*ast.Call]*Func),
            Classes   : make(map[string]*Class),
            Funcs     : make(map[string]*Func),
            VarOf     : make(map[*ast.VarItem]*Var),
            ParamOf   : make(map[*ast.FuncDecl][]*Var),
        },
    }
    if err := c.collect(prog); err != nil {
        return nil, err
    }
    if err := c.checkAll(prog); err != nil {
        return nil, err
    }
    return c.info, nil
}

func (self *checker) errorf(p ast.Node, format string, args ...interface{}) error {
    return &Error { Pos: p.Pos(), Reason: fmt.Sprintf(format, args...) }
}

func (self *checker) resolve(t *ast.TypeExpr, allowVoid bool) (*Type, error) {
    var base *Type
    switch t.Name {
        case "int"    : base = TInt
        case "bool"   : base = TBool
        case "string" : base = TString
        case "void"   : base = TVoid
        default: {
            if _, ok := self.info.Classes[t.Name]; !ok {
                return nil, self.errorf(t, "undefined type '%s'", t.Name)
            }
            base = ClassOf(t.Name)
        }
    }
    if base == TVoid && (!allowVoid || t.Dims != 0) {
        return nil, self.errorf(t, "invalid use of type 'void'")
    }
    for i := 0; i < t.Dims; i++ {
        base = ArrayOf(base)
    }
    return base, nil
}

/* pass 1: classes and function signatures */
func (self *checker) collect(prog *ast.Program) error {
    for name, fn := range builtins() {
        self.info.Funcs[name] = fn
    }

    /* class names first, so fields may refer to any class */
    for _, d := range prog.Decls {
        if cd, ok := d.(*ast.ClassDecl); ok {
            if _, dup := self.info.Classes[cd.Name]; dup {
                return self.errorf(cd, "duplicate class '%s'", cd.Name)
            }
            self.info.Classes[cd.Name] = &Class {
                Name    : cd.Name,
                ByName  : make(map[string]*Field),
                Methods : make(map[string]*Func),
            }
        }
    }

    /* class members */
    for _, d := range prog.Decls {
        cd, ok := d.(*ast.ClassDecl)
        if !ok {
            continue
        }
        cls := self.info.Classes[cd.Name]

        /* field slots in declaration order */
        for _, fd := range cd.Fields {
            ft, err := self.resolve(fd.Type, false)
            if err != nil {
                return err
            }
            for _, item := range fd.Items {
                if item.Init != nil {
                    return self.errorf(fd, "field '%s' must not have an initializer", item.Name)
                }
                if _, dup := cls.ByName[item.Name]; dup {
                    return self.errorf(fd, "duplicate field '%s'", item.Name)
                }
                f := &Field { Name: item.Name, Type: ft, Ord: len(cls.Fields) }
                cls.Fields = append(cls.Fields, f)
                cls.ByName[item.Name] = f
            }
        }

        /* methods */
        for _, md := range cd.Methods {
            fn, err := self.signature(md, cls)
            if err != nil {
                return err
            }
            if _, dup := cls.Methods[md.Name]; dup {
                return self.errorf(md, "duplicate method '%s'", md.Name)
            }
            cls.Methods[md.Name] = fn
            self.info.Funcs[fn.Mangled] = fn
        }

        /* constructor */
        if cd.Ctor != nil {
            fn, err := self.signature(cd.Ctor, cls)
            if err != nil {
                return err
            }
            fn.Ret = TVoid
            cls.Ctor = fn
            self.info.Funcs[fn.Mangled] = fn
        }
    }

    /* global functions */
    for _, d := range prog.Decls {
        if fd, ok := d.(*ast.FuncDecl); ok {
            fn, err := self.signature(fd, nil)
            if err != nil {
                return err
            }
            if _, dup := self.info.Funcs[fd.Name]; dup {
                return self.errorf(fd, "duplicate function '%s'", fd.Name)
            }
            self.info.Funcs[fd.Name] = fn
        }
    }

    /* entry point */
    if fn, ok := self.info.Funcs["main"]; !ok {
        return fmt.Errorf("missing 'main' function")
    } else if fn.Ret != TInt || len(fn.Params) != 0 {
        return self.errorf(fn.Decl, "'main' must be 'int main()'")
    }
    return nil
}

func (self *checker) signature(fd *ast.FuncDecl, cls *Class) (*Func, error) {
    var err error
    var ret *Type

    /* constructors have no return type */
    if fd.Ret != nil {
        if ret, err = self.resolve(fd.Ret, true); err != nil {
            return nil, err
        }
    } else {
        ret = TVoid
    }

    fn := &Func {
        Name  : fd.Name,
        Ret   : ret,
        Class : cls,
        Decl  : fd,
    }
    if cls != nil {
        fn.Mangled = cls.Name + "." + fd.Name
    } else {
        fn.Mangled = fd.Name
    }

    /* parameters */
    seen := make(map[string]bool)
    for _, p := range fd.Params {
        pt, err := self.resolve(p.Type, false)
        if err != nil {
            return nil, err
        }
        if seen[p.Name] {
            return nil, self.errorf(fd, "duplicate parameter '%s'", p.Name)
        }
        seen[p.Name] = true
        fn.Params = append(fn.Params, &Var { Name: p.Name, Type: pt })
    }
    return fn, nil
}

/* pass 2: globals and bodies */
func (self *checker) checkAll(prog *ast.Program) error {
    /* globals first: bodies may reference any of them */
    for _, d := range prog.Decls {
        vd, ok := d.(*ast.VarDecl)
        if !ok {
            continue
        }
        vt, err := self.resolve(vd.Type, false)
        if err != nil {
            return err
        }
        for i := range vd.Items {
            item := &vd.Items[i]
            for _, g := range self.info.Globals {
                if g.Name == item.Name {
                    return self.errorf(vd, "duplicate global '%s'", item.Name)
                }
            }
            v := &Var { Name: item.Name, Type: vt, Global: true }
            self.info.Globals = append(self.info.Globals, v)
            self.info.VarOf[item] = v
        }
    }

    /* global initializers, in declaration order */
    for _, d := range prog.Decls {
        vd, ok := d.(*ast.VarDecl)
        if !ok {
            continue
        }
        for i := range vd.Items {
            item := &vd.Items[i]
            if item.Init == nil {
                continue
            }
            v := self.info.VarOf[item]
            xt, err := self.expr(item.Init)
            if err != nil {
                return err
            }
            if !xt.AssignableTo(v.Type) {
                return self.errorf(item.Init, "cannot initialize '%s' (%s) with %s", v.Name, v.Type, xt)
            }
            self.info.GlobalInit = append(self.info.GlobalInit, GlobalInit { V: v, X: item.Init })
        }
    }

    /* function bodies */
    for _, d := range prog.Decls {
        switch dd := d.(type) {
            case *ast.FuncDecl: {
                if err := self.body(self.info.Funcs[dd.Name], nil); err != nil {
                    return err
                }
            }

            case *ast.ClassDecl: {
                cls := self.info.Classes[dd.Name]
                for _, md := range dd.Methods {
                    if err := self.body(cls.Methods[md.Name], cls); err != nil {
                        return err
                    }
                }
                if dd.Ctor != nil {
                    if err := self.body(cls.Ctor, cls); err != nil {
                        return err
                    }
                }
            }
        }
    }
    return nil
}

func (self *checker) body(fn *Func, cls *Class) error {
    self.fn = fn
    self.class = cls
    self.loops = 0
    self.scopes = self.scopes[:0]
    self.push()

    /* parameters live in the outermost scope */
    for _, p := range fn.Params {
        self.scopes[0][p.Name] = p
    }
    self.info.ParamOf[fn.Decl] = fn.Params

    err := self.blockInto(fn.Decl.Body)
    self.pop()
    self.fn = nil
    self.class = nil
    return err
}

func (self *checker) push() {
    self.scopes = append(self.scopes, make(map[string]*Var))
}

func (self *checker) pop() {
    self.scopes = self.scopes[:len(self.scopes) - 1]
}

func (self *checker) lookup(name string) *Var {
    for i := len(self.scopes) - 1; i >= 0; i-- {
        if v, ok := self.scopes[i][name]; ok {
            return v
        }
    }
    return nil
}

func (self *checker) blockInto(b *ast.Block) error {
    for _, s := range b.Stmts {
        if err := self.stmt(s); err != nil {
            return err
        }
    }
    return nil
}

func (self *checker) stmt(s ast.Stmt) error {
    switch ss := s.(type) {
        case *ast.Block: {
            self.push()
            err := self.blockInto(ss)
            self.pop()
            return err
        }

        case *ast.ExprStmt: {
            _, err := self.expr(ss.X)
            return err
        }

        case *ast.DeclStmt: {
            return self.localdecl(ss.D)
        }

        case *ast.If: {
            if err := self.cond(ss.Cond); err != nil {
                return err
            }
            if err := self.stmt(ss.Then); err != nil {
                return err
            }
            if ss.Else != nil {
                return self.stmt(ss.Else)
            }
            return nil
        }

        case *ast.While: {
            if err := self.cond(ss.Cond); err != nil {
                return err
            }
            self.loops++
            err := self.stmt(ss.Body)
            self.loops--
            return err
        }

        case *ast.For: {
            self.push()
            defer self.pop()
            if ss.Init != nil {
                if err := self.stmt(ss.Init); err != nil {
                    return err
                }
            }
            if ss.Cond != nil {
                if err := self.cond(ss.Cond); err != nil {
                    return err
                }
            }
            if ss.Step != nil {
                if _, err := self.expr(ss.Step); err != nil {
                    return err
                }
            }
            self.loops++
            err := self.stmt(ss.Body)
            self.loops--
            return err
        }

        case *ast.Return: {
            if ss.X == nil {
                if self.fn.Ret != TVoid {
                    return self.errorf(ss, "missing return value in '%s'", self.fn.Name)
                }
                return nil
            }
            xt, err := self.expr(ss.X)
            if err != nil {
                return err
            }
            if !xt.AssignableTo(self.fn.Ret) {
                return self.errorf(ss, "cannot return %s from '%s' (%s)", xt, self.fn.Name, self.fn.Ret)
            }
            return nil
        }

        case *ast.Break: {
            if self.loops == 0 {
                return self.errorf(ss, "'break' outside of a loop")
            }
            return nil
        }

        case *ast.Continue: {
            if self.loops == 0 {
                return self.errorf(ss, "'continue' outside of a loop")
            }
            return nil
        }
    }
    panic("sema: unknown statement kind")
}

func (self *checker) localdecl(d *ast.VarDecl) error {
    vt, err := self.resolve(d.Type, false)
    if err != nil {
        return err
    }
    for i := range d.Items {
        item := &d.Items[i]
        top := self.scopes[len(self.scopes) - 1]
        if _, dup := top[item.Name]; dup {
            return self.errorf(d, "redeclaration of '%s'", item.Name)
        }
        if item.Init != nil {
            xt, err := self.expr(item.Init)
            if err != nil {
                return err
            }
            if !xt.AssignableTo(vt) {
                return self.errorf(item.Init, "cannot initialize '%s' (%s) with %s", item.Name, vt, xt)
            }
        }
        v := &Var { Name: item.Name, Type: vt }
        top[item.Name] = v
        self.info.VarOf[item] = v
    }
    return nil
}

func (self *checker) cond(x ast.Expr) error {
    xt, err := self.expr(x)
    if err != nil {
        return err
    }
    if xt != TBool {
        return self.errorf(x, "condition must be bool, found %s", xt)
    }
    return nil
}

func (self *checker) islvalue(x ast.Expr) bool {
    switch xx := x.(type) {
        case *ast.Ident  : return self.info.Uses[xx] != nil || self.info.FieldUses[xx] != nil
        case *ast.Member : return self.info.Members[xx] != nil
        case *ast.Index  : return true
        default          : return false
    }
}

func (self *checker) expr(x ast.Expr) (*Type, error) {
    t, err := self.exprval(x)
    if err != nil {
        return nil, err
    }
    self.info.Types[x] = t
    return t, nil
}

func (self *checker) exprval(x ast.Expr) (*Type, error) {
    switch xx := x.(type) {
        case *ast.IntLit  : return TInt, nil
        case *ast.StrLit  : return TString, nil
        case *ast.BoolLit : return TBool, nil
        case *ast.NullLit : return TNull, nil

        case *ast.ThisLit: {
            if self.class == nil {
                return nil, self.errorf(xx, "'this' outside of a class")
            }
            return ClassOf(self.class.Name), nil
        }

        case *ast.Ident: {
            if v := self.lookup(xx.Name); v != nil {
                self.info.Uses[xx] = v
                return v.Type, nil
            }
            if self.class != nil {
                if f, ok := self.class.ByName[xx.Name]; ok {
                    self.info.FieldUses[xx] = f
                    return f.Type, nil
                }
            }
            for _, g := range self.info.Globals {
                if g.Name == xx.Name {
                    self.info.Uses[xx] = g
                    return g.Type, nil
                }
            }
            return nil, self.errorf(xx, "undefined variable '%s'", xx.Name)
        }

        case *ast.Unary   : return self.unary(xx)
        case *ast.Binary  : return self.binary(xx)
        case *ast.Assign  : return self.assign(xx)
        case *ast.Ternary : return self.ternary(xx)
        case *ast.Call    : return self.call(xx)
        case *ast.Member  : return self.member(xx)
        case *ast.Index   : return self.index(xx)
        case *ast.New     : return self.newexpr(xx)
    }
    panic("sema: unknown expression kind")
}

func (self *checker) unary(x *ast.Unary) (*Type, error) {
    xt, err := self.expr(x.X)
    if err != nil {
        return nil, err
    }
    switch x.Op {
        case ast.UnNeg, ast.UnInv: {
            if xt != TInt {
                return nil, self.errorf(x, "operand must be int, found %s", xt)
            }
            return TInt, nil
        }

        case ast.UnNot: {
            if xt != TBool {
                return nil, self.errorf(x, "operand must be bool, found %s", xt)
            }
            return TBool, nil
        }

        default: {
            if xt != TInt {
                return nil, self.errorf(x, "operand must be int, found %s", xt)
            }
            if !self.islvalue(x.X) {
                return nil, self.errorf(x, "operand of '++'/'--' must be assignable")
            }
            return TInt, nil
        }
    }
}

func (self *checker) binary(x *ast.Binary) (*Type, error) {
    xt, err := self.expr(x.X)
    if err != nil {
        return nil, err
    }
    yt, err := self.expr(x.Y)
    if err != nil {
        return nil, err
    }

    switch x.Op {
        case ast.OpAdd: {
            if xt == TInt && yt == TInt {
                return TInt, nil
            }
            if xt == TString && yt == TString {
                return TString, nil
            }
            return nil, self.errorf(x, "invalid operands to '+': %s and %s", xt, yt)
        }

        case ast.OpSub, ast.OpMul, ast.OpDiv, ast.OpRem,
             ast.OpAnd, ast.OpOr, ast.OpXor, ast.OpShl, ast.OpShr: {
            if xt != TInt || yt != TInt {
                return nil, self.errorf(x, "operands must be int, found %s and %s", xt, yt)
            }
            return TInt, nil
        }

        case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe: {
            if (xt == TInt && yt == TInt) || (xt == TString && yt == TString) {
                return TBool, nil
            }
            return nil, self.errorf(x, "invalid comparison of %s and %s", xt, yt)
        }

        case ast.OpEq, ast.OpNe: {
            if xt.AssignableTo(yt) || yt.AssignableTo(xt) {
                return TBool, nil
            }
            return nil, self.errorf(x, "invalid comparison of %s and %s", xt, yt)
        }

        default: {
            if xt != TBool || yt != TBool {
                return nil, self.errorf(x, "operands must be bool, found %s and %s", xt, yt)
            }
            return TBool, nil
        }
    }
}

func (self *checker) assign(x *ast.Assign) (*Type, error) {
    lt, err := self.expr(x.L)
    if err != nil {
        return nil, err
    }
    if !self.islvalue(x.L) {
        return nil, self.errorf(x, "left side of '=' is not assignable")
    }
    rt, err := self.expr(x.R)
    if err != nil {
        return nil, err
    }
    if !rt.AssignableTo(lt) {
        return nil, self.errorf(x, "cannot assign %s to %s", rt, lt)
    }
    return lt, nil
}

func (self *checker) ternary(x *ast.Ternary) (*Type, error) {
    if err := self.cond(x.C); err != nil {
        return nil, err
    }
    xt, err := self.expr(x.X)
    if err != nil {
        return nil, err
    }
    yt, err := self.expr(x.Y)
    if err != nil {
        return nil, err
    }
    switch {
        case xt.Same(yt)                       : return xt, nil
        case xt.Kind == KNull && yt.IsRef()    : return yt, nil
        case yt.Kind == KNull && xt.IsRef()    : return xt, nil
        default                                : return nil, self.errorf(x, "mismatched branches of '?:': %s and %s", xt, yt)
    }
}

func (self *checker) call(x *ast.Call) (*Type, error) {
    var fn *Func

    switch fx := x.Fn.(type) {
        case *ast.Ident: {
            /* unqualified method call inside a class body */
            if self.class != nil {
                if m, ok := self.class.Methods[fx.Name]; ok {
                    fn = m
                }
            }
            if fn == nil {
                f, ok := self.info.Funcs[fx.Name]
                if !ok || f.Class != nil {
                    return nil, self.errorf(x, "undefined function '%s'", fx.Name)
                }
                fn = f
            }
        }

        case *ast.Member: {
            xt, err := self.expr(fx.X)
            if err != nil {
                return nil, err
            }
            switch xt.Kind {
                case KString: {
                    m, ok := strMethods[fx.Name]
                    if !ok {
                        return nil, self.errorf(x, "string has no method '%s'", fx.Name)
                    }
                    fn = m
                }

                case KArray: {
                    if fx.Name != "size" {
                        return nil, self.errorf(x, "array has no method '%s'", fx.Name)
                    }
                    fn = arraySize
                }

                case KClass: {
                    m, ok := self.info.Classes[xt.Class].Methods[fx.Name]
                    if !ok {
                        return nil, self.errorf(x, "class '%s' has no method '%s'", xt.Class, fx.Name)
                    }
                    fn = m
                }

                default: {
                    return nil, self.errorf(x, "%s has no methods", xt)
                }
            }
        }

        default: {
            return nil, self.errorf(x, "called object is not a function")
        }
    }

    /* argument checks; the receiver is implicit */
    if len(x.Args) != len(fn.Params) {
        return nil, self.errorf(x, "'%s' expects %d argument(s), got %d", fn.Name, len(fn.Params), len(x.Args))
    }
    for i, a := range x.Args {
        at, err := self.expr(a)
        if err != nil {
            return nil, err
        }
        if !at.AssignableTo(fn.Params[i].Type) {
            return nil, self.errorf(a, "argument %d of '%s': cannot pass %s as %s", i + 1, fn.Name, at, fn.Params[i].Type)
        }
    }

    self.info.Calls[x] = fn
    return fn.Ret, nil
}

func (self *checker) member(x *ast.Member) (*Type, error) {
    xt, err := self.expr(x.X)
    if err != nil {
        return nil, err
    }
    if xt.Kind != KClass {
        return nil, self.errorf(x, "%s has no field '%s'", xt, x.Name)
    }
    f, ok := self.info.Classes[xt.Class].ByName[x.Name]
    if !ok {
        return nil, self.errorf(x, "class '%s' has no field '%s'", xt.Class, x.Name)
    }
    self.info.Members[x] = f
    return f.Type, nil
}

func (self *checker) index(x *ast.Index) (*Type, error) {
    xt, err := self.expr(x.X)
    if err != nil {
        return nil, err
    }
    if xt.Kind != KArray {
        return nil, self.errorf(x, "cannot index %s", xt)
    }
    it, err := self.expr(x.I)
    if err != nil {
        return nil, err
    }
    if it != TInt {
        return nil, self.errorf(x.I, "array index must be int, found %s", it)
    }
    return xt.Elem, nil
}

func (self *checker) newexpr(x *ast.New) (*Type, error) {
    t, err := self.resolve(x.Type, false)
    if err != nil {
        return nil, err
    }

    /* array allocation */
    if x.Type.Dims != 0 {
        for _, n := range x.Sizes {
            nt, err := self.expr(n)
            if err != nil {
                return nil, err
            }
            if nt != TInt {
                return nil, self.errorf(n, "array size must be int, found %s", nt)
            }
        }
        return t, nil
    }

    /* object allocation */
    if t.Kind != KClass {
        return nil, self.errorf(x, "cannot allocate a scalar '%s' with new", t)
    }
    cls := self.info.Classes[t.Class]
    var np int
    if cls.Ctor != nil {
        np = len(cls.Ctor.Params)
    }
    if len(x.Args) != np {
        return nil, self.errorf(x, "constructor of '%s' expects %d argument(s), got %d", t.Class, np, len(x.Args))
    }
    for i, a := range x.Args {
        at, err := self.expr(a)
        if err != nil {
            return nil, err
        }
        if !at.AssignableTo(cls.Ctor.Params[i].Type) {
            return nil, self.errorf(a, "constructor argument %d: cannot pass %s as %s", i + 1, at, cls.Ctor.Params[i].Type)
        }
    }
    return t, nil
}
