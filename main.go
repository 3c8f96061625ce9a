package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pxdgen/ir"
	"pxdgen/parser"
	"pxdgen/writer"
)

// headerParser is what main needs from a front end. Both the libclang
// backend and the pure Go cc backend satisfy it.
type headerParser interface {
	ParseHeader(filename string) (*ir.Header, error)
	Trace() string
}

func usage() {
	fmt.Println("Usage: pxdgen <header-file> [options]")
	fmt.Println("Options:")
	fmt.Println("  -o, --output <file>     Output file (default: <header>.pxd)")
	fmt.Println("  -I <dir>                Add an include search directory (repeatable)")
	fmt.Println("  --backend clang|cc      Parser backend (default: clang)")
	fmt.Println("  -v, --verbose           Print the parse log")
	fmt.Println("  -h, --help              Show this help message")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	headerFile := os.Args[1]
	if headerFile == "-h" || headerFile == "--help" {
		usage()
		os.Exit(0)
	}

	outputFile := ""
	backend := "clang"
	verbose := false
	var includeDirs []string

	for i := 2; i < len(os.Args); i++ {
		switch os.Args[i] {
		case "-o", "--output":
			if i+1 < len(os.Args) {
				outputFile = os.Args[i+1]
				i++
			}
		case "-I":
			if i+1 < len(os.Args) {
				includeDirs = append(includeDirs, os.Args[i+1])
				i++
			}
		case "--backend":
			if i+1 < len(os.Args) {
				backend = os.Args[i+1]
				i++
			}
		case "-v", "--verbose":
			verbose = true
		case "-h", "--help":
			usage()
			os.Exit(0)
		default:
			fmt.Printf("Unknown option: %s\n", os.Args[i])
			usage()
			os.Exit(1)
		}
	}

	if outputFile == "" {
		base := filepath.Base(headerFile)
		outputFile = strings.TrimSuffix(base, filepath.Ext(base)) + ".pxd"
	}

	var p headerParser
	switch backend {
	case "clang":
		p = parser.NewClang(includeDirs)
	case "cc":
		p = parser.NewCC(includeDirs)
	default:
		fmt.Printf("Unknown backend: %s (want clang or cc)\n", backend)
		os.Exit(1)
	}

	fmt.Printf("Parsing header file: %s\n", headerFile)
	header, err := p.ParseHeader(headerFile)
	if err != nil {
		fmt.Printf("Error parsing header file: %v\n", err)
		os.Exit(1)
	}

	if verbose {
		fmt.Println("=== Parse Log ===")
		fmt.Print(p.Trace())
		fmt.Println("=== End Parse Log ===")
	}

	out, err := writer.New().Write(header)
	if err != nil {
		fmt.Printf("Error generating declarations: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outputFile, []byte(out), 0644); err != nil {
		fmt.Printf("Error writing output file: %v\n", err)
		os.Exit(1)
	}

	counts := map[string]int{}
	for _, d := range header.Decls {
		switch d.(type) {
		case *ir.Struct:
			counts["structs"]++
		case *ir.Enum:
			counts["enums"]++
		case *ir.Typedef:
			counts["typedefs"]++
		case *ir.Function:
			counts["functions"]++
		case *ir.Variable:
			counts["variables"]++
		case *ir.Constant:
			counts["constants"]++
		}
	}

	fmt.Printf("Generated declarations: %s\n", outputFile)
	fmt.Printf("Structs: %d\n", counts["structs"])
	fmt.Printf("Enums: %d\n", counts["enums"])
	fmt.Printf("Typedefs: %d\n", counts["typedefs"])
	fmt.Printf("Functions: %d\n", counts["functions"])
	fmt.Printf("Variables: %d\n", counts["variables"])
	fmt.Printf("Constants: %d\n", counts["constants"])
}
