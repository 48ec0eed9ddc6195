package main

import (
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	zeta "github.com/zeta-lang/zeta/go"
)

// Exit code used for every fatal diagnostic
const fatalExitCode = 255

type args struct {
	test       bool
	astOnly    bool
	heapSize   uint64
	globalPath string
	beerPath   string
}

func main() {
	a := &args{}

	rootCmd := &cobra.Command{
		Use:   "zeta [file]",
		Short: "The Zeta virtual machine",
		Long: "The Zeta virtual machine: runs the named source file, or opens a\n" +
			"read-eval-print loop when no file is given.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, argv []string) error {
			return run(a, argv)
		},
	}

	rootCmd.Flags().BoolVar(&a.test, "test", false, "Run the built-in self-tests and exit")
	rootCmd.Flags().BoolVar(&a.astOnly, "ast-only", false, "Print the AST of the source file instead of running it")
	rootCmd.Flags().Uint64Var(&a.heapSize, "heap-size", zeta.HeapSize, "VM heap size in bytes")
	rootCmd.Flags().StringVar(&a.globalPath, "global", zeta.DefaultGlobalPath, "Path to the runtime library")
	rootCmd.Flags().StringVar(&a.beerPath, "beer", "testdata/beer.zeta", "Path to the self-test parse target")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(fatalExitCode)
	}
}

func run(a *args, argv []string) error {
	if a.test {
		return zeta.SelfTest(os.Stdout, a.globalPath, a.beerPath)
	}

	vm := zeta.NewVM(zeta.WithHeapSize(a.heapSize))

	if a.astOnly {
		if len(argv) != 1 {
			return fmt.Errorf("--ast-only needs a source file")
		}
		node, err := vm.ParseFile(argv[0])
		if err != nil {
			return err
		}
		unit, err := vm.ParseCheckError(node)
		if err != nil {
			return err
		}
		fmt.Print(vm.PrettyString(unit))
		return nil
	}

	if err := vm.RuntimeInit(a.globalPath); err != nil {
		return err
	}

	if len(argv) == 1 {
		_, err := vm.EvalFile(argv[0])
		return err
	}

	return runREPL(vm)
}

func runREPL(vm *zeta.VM) error {
	fmt.Println("Zeta Read-Eval-Print Loop (REPL). Press Ctrl+D to exit.")
	fmt.Println()

	rl, err := readline.New("z> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if line == "" {
			continue
		}

		val, err := vm.EvalString(line, "shell")
		if err != nil {
			// REPL failures are reported but do not end the session
			fmt.Println(err)
			continue
		}

		fmt.Println(val)
	}
}
