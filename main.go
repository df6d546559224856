package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"hydrogen/pkg/asm"
	"hydrogen/pkg/compiler"
	"hydrogen/pkg/cpu"
	"hydrogen/pkg/toolchain"
	"hydrogen/pkg/utils"
)

type options struct {
	out       string
	asmOnly   bool
	run       bool
	target    string
	assembler string
	linker    string
	verbose   bool
	source    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("hydrogen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.out, "o", "out", "output executable path; assembly goes to <out>.asm")
	fs.BoolVar(&opts.asmOnly, "S", false, "stop after writing the assembly file")
	fs.BoolVar(&opts.run, "run", false, "run the program on the built-in ARM64 interpreter instead of linking")
	fs.StringVar(&opts.target, "target", compiler.HostTarget().Name, fmt.Sprintf("code generation target %v", compiler.Targets()))
	fs.StringVar(&opts.assembler, "as", "", "assembler to run (default per target)")
	fs.StringVar(&opts.linker, "ld", "", "linker to run (default per target)")
	fs.BoolVar(&opts.verbose, "v", false, "log toolchain commands and output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Incorrect usage. Correct usage is...")
		fmt.Fprintln(stderr, "hydrogen [flags] <input.hy>")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return opts, flag.ErrHelp
	}
	opts.source = fs.Arg(0)
	return opts, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}

	log.SetFlags(0)
	log.SetPrefix("hydrogen: ")

	os.Exit(run(context.Background(), opts))
}

func run(ctx context.Context, opts options) int {
	target, err := compiler.LookupTarget(opts.target)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	asmPath, objPath, err := utils.OutputPaths(opts.out)
	if err != nil && !opts.run {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	src, err := utils.ReadSource(opts.source)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	assembly, err := compiler.Compile(src, target)
	if err != nil {
		fmt.Fprintf(os.Stderr, "compilation failed: %v\n", err)
		return 1
	}

	if opts.run {
		code, err := runAssembly(assembly, target)
		if err != nil {
			fmt.Fprintf(os.Stderr, "run failed for %q: %v\n", opts.source, err)
			return 1
		}
		return code
	}

	if err := utils.WriteText(asmPath, assembly); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.verbose {
		if full, _, err := utils.GetPathInfo(asmPath); err == nil {
			log.Printf("wrote %s", full)
		}
	}
	if opts.asmOnly {
		return 0
	}

	tc, err := toolchain.New(target.Name)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if opts.assembler != "" {
		tc.Assembler = opts.assembler
	}
	if opts.linker != "" {
		tc.Linker = opts.linker
	}
	if opts.verbose {
		tc.Logf = log.Printf
	}

	if err := tc.Build(ctx, asmPath, objPath, opts.out); err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		return 1
	}
	return 0
}

// runAssembly executes generated assembly on the interpreter and returns the
// program's exit status.
func runAssembly(assembly string, target compiler.Target) (int, error) {
	abi, ok := cpu.ABIFor(target.Name)
	if !ok {
		return 0, fmt.Errorf("no interpreter ABI for target %q", target.Name)
	}
	prog, err := asm.Parse(assembly)
	if err != nil {
		return 0, fmt.Errorf("assembly error: %w", err)
	}
	return cpu.Execute(prog, abi)
}
