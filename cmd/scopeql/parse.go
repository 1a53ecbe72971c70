package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrWong99/scopeql/internal/ast"
	"github.com/MrWong99/scopeql/internal/parser"
)

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <expression>",
		Short: "Parse a scope expression and print its node tree",
		Args:  cobra.ExactArgs(1),
		RunE:  runParse,
	}
}

func runParse(cmd *cobra.Command, args []string) error {
	node, err := parser.Parse(args[0])
	if err != nil {
		return err
	}
	printTree(os.Stdout, node, 0)
	return nil
}

// printTree renders the tree top-down: unions list their children, chains
// are unwound so the root prints first.
func printTree(out *os.File, n *ast.Node, indent int) {
	if n == nil {
		return
	}
	pad := strings.Repeat("  ", indent)
	switch n.Kind {
	case ast.KindUnion:
		fmt.Fprintf(out, "%sunion\n", pad)
		for _, c := range n.Children {
			printTree(out, c, indent+1)
		}
	default:
		printTree(out, n.Parent, indent)
		switch n.Kind {
		case ast.KindRoot:
			fmt.Fprintf(out, "%sroot %s\n", pad, n.Name)
		case ast.KindReference:
			fmt.Fprintf(out, "%sreference %s\n", pad, n.Name)
		case ast.KindStep:
			fmt.Fprintf(out, "%sstep .%s\n", pad, n.Field)
		case ast.KindArrayIterate:
			fmt.Fprintf(out, "%sarray []\n", pad)
		case ast.KindFilter:
			fmt.Fprintf(out, "%sfilter [%s]\n", pad, n.Predicate)
		}
	}
}
