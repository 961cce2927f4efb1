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

// mxc compiles Mx* source from standard input into RV32IM assembly on
// standard output. The output links against runtime/builtin.s.
package main

import (
    `fmt`
    `io`
    `os`

    `github.com/davecgh/go-spew/spew`
    `github.com/mxlang/mxc/internal/mx/parser`
    `github.com/mxlang/mxc/internal/mx/sema`
    `github.com/mxlang/mxc/internal/rv32`
    `github.com/mxlang/mxc/internal/ssa`
    `github.com/spf13/cobra`
)

var version = "0.1.0"

/* debug flags for dumping intermediate representations */
var (
    dAST      bool
    dIR       bool
    dSSA      bool
    dLiveness bool
    dColor    bool
    dFinal    bool
    outFile   string
)

func main() {
    os.Exit(run())
}

func run() (code int) {
    /* IR shape violations are compiler bugs, not user errors */
    defer func() {
        if p := recover(); p != nil {
            fmt.Fprintf(os.Stderr, "mxc: internal error: %v\n", p)
            code = 2
        }
    }()

    cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr)
    if err := cmd.Execute(); err != nil {
        return 1
    }
    return 0
}

func newRootCmd(in io.Reader, out io.Writer, errOut io.Writer) *cobra.Command {
    cmd := &cobra.Command {
        Use           : "mxc [file]",
        Short         : "mxc is a whole-program Mx* compiler targeting RV32IM",
        Version       : version,
        Args          : cobra.MaximumNArgs(1),
        SilenceUsage  : true,
        SilenceErrors : true,
        RunE: func(cmd *cobra.Command, args []string) error {
            src := in
            if len(args) == 1 {
                f, err := os.Open(args[0])
                if err != nil {
                    fmt.Fprintf(errOut, "mxc: %v\n", err)
                    return err
                }
                defer f.Close()
                src = f
            }
            if err := compile(src, out, errOut); err != nil {
                fmt.Fprintf(errOut, "mxc: %v\n", err)
                return err
            }
            return nil
        },
    }

    fl := cmd.Flags()
    fl.BoolVar(&dAST, "dump-ast", false, "dump the syntax tree to stderr")
    fl.BoolVar(&dIR, "dump-ir", false, "dump the memory-cell IR to stderr")
    fl.BoolVar(&dSSA, "dump-ssa", false, "dump the IR after Mem2Reg to stderr")
    fl.BoolVar(&dLiveness, "dump-liveness", false, "dump liveness sets to stderr")
    fl.BoolVar(&dColor, "dump-color", false, "dump the register assignment to stderr")
    fl.BoolVar(&dFinal, "dump-final", false, "dump the IR after phi elimination to stderr")
    fl.StringVarP(&outFile, "output", "o", "", "write assembly to a file instead of stdout")
    return cmd
}

func compile(in io.Reader, out io.Writer, errOut io.Writer) error {
    src, err := io.ReadAll(in)
    if err != nil {
        return err
    }

    /* front end */
    prog, err := parser.Parse(string(src))
    if err != nil {
        return err
    }
    if dAST {
        spew.Fdump(errOut, prog)
    }
    info, err := sema.Check(prog)
    if err != nil {
        return err
    }

    /* middle end */
    mod := ssa.Build(prog, info)
    if dIR {
        dumpModule(errOut, "build", mod)
    }
    ssa.DumpLiveness = dLiveness
    ssa.DumpColors = dColor
    ssa.DumpHook = func(pass string, fn *ssa.Function) {
        switch {
            case dSSA && pass == "Memory to Register Promotion" : dumpFunc(errOut, pass, fn)
            case dFinal && pass == "Phi Elimination"            : dumpFunc(errOut, pass, fn)
        }
    }
    mod.Compile()

    /* back end */
    text := rv32.Emit(mod)
    if outFile != "" {
        return os.WriteFile(outFile, []byte(text), 0644)
    }
    _, err = io.WriteString(out, text)
    return err
}

func dumpModule(w io.Writer, stage string, mod *ssa.Module) {
    for _, fn := range mod.Funcs {
        dumpFunc(w, stage, fn)
    }
}

func dumpFunc(w io.Writer, stage string, fn *ssa.Function) {
    fmt.Fprintf(w, "; ---- %s: %s ----\n%s\n", stage, fn.Name, fn.CFG)
}
