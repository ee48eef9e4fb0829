package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/deckpatch/go-deckpatch/pkg/deckpatch"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("deckpatch version %s\n", version)
	case "inventory":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		os.Exit(runInventory(os.Args[2]))
	case "apply":
		if len(os.Args) < 5 {
			usage()
			os.Exit(1)
		}
		os.Exit(runApply(os.Args[2], os.Args[3], os.Args[4]))
	case "validate":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		os.Exit(runValidate(os.Args[2]))
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("deckpatch - Structural content editing for presentation archives")
	fmt.Println("\nUsage: deckpatch <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  inventory <file.pptx>                        Print the addressable content inventory as JSON")
	fmt.Println("  apply <file.pptx> <directives.json> <out>    Apply replacement directives and write the result")
	fmt.Println("  validate <file.pptx>                         Validate and print findings as JSON")
	fmt.Println("  version                                      Show version information")
}

func runInventory(path string) int {
	doc, err := deckpatch.OpenDocument(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	inv := deckpatch.ExtractInventory(doc)
	if err := printJSON(inv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runApply(path, directivesPath, outPath string) int {
	doc, err := deckpatch.OpenDocument(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	data, err := os.ReadFile(directivesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	var directives []deckpatch.Directive
	if err := json.Unmarshal(data, &directives); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid directives file: %v\n", err)
		return 1
	}

	baseline := deckpatch.Validate(doc)
	report := deckpatch.ApplyDirectives(doc, directives)
	result := deckpatch.Validate(doc)
	introduced := deckpatch.RegressionCheck(baseline.Issues, result.Issues)

	if err := printJSON(map[string]interface{}{
		"report":     report,
		"introduced": introduced,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if err := doc.WriteFile(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	if !report.Resolved() || len(introduced) > 0 {
		return 1
	}
	return 0
}

func runValidate(path string) int {
	doc, err := deckpatch.OpenDocument(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	result := deckpatch.Validate(doc)
	if err := printJSON(result); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if !result.Clean {
		return 1
	}
	return 0
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
