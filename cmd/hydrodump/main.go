package main

import (
	"flag"
	"fmt"
	"os"

	"hydrogen/pkg/compiler"
	"hydrogen/pkg/utils"
)

const testSource = `let x = 5;
let y = x;
exit(y);
`

func main() {
	targetName := flag.String("target", compiler.TargetDarwinARM64.Name, "code generation target")
	flag.Parse()

	target, err := compiler.LookupTarget(*targetName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	src := testSource
	if flag.NArg() > 0 {
		src, err = utils.ReadSource(flag.Arg(0))
		if err != nil {
			fmt.Fprintln(os.Stderr, "read error:", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Source:\n%s\n", src)

	// Lex
	tokens, err := compiler.Lex(src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "lex error:", err)
		os.Exit(1)
	}

	fmt.Printf("Tokens (%d)\n", len(tokens))
	for _, tok := range tokens {
		fmt.Println(" ", tok)
	}
	fmt.Println()

	// Parse
	prog, err := compiler.Parse(tokens, src)
	if err != nil {
		fmt.Fprintln(os.Stderr, "parse error:", err)
		os.Exit(1)
	}

	fmt.Println("AST")
	for _, s := range prog.Stmts {
		fmt.Println(" ", s)
	}
	fmt.Println()

	// code Generation
	syms := compiler.NewSymbolTable()
	assembly, err := compiler.Generate(prog, syms, target)
	if err != nil {
		fmt.Fprintln(os.Stderr, "codegen error:", err)
		os.Exit(1)
	}

	fmt.Println("Generated Assembly")
	fmt.Print(assembly)
	fmt.Println()
	fmt.Print(syms)
}
