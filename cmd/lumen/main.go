// Command lumen is the lumen language's REPL and file runner, built on
// urfave/cli/v2 for flag parsing, help text, and subcommand plumbing
// instead of hand-rolled argv matching.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/urfave/cli/v2"

	"github.com/lumenlang/lumen/pkg/chunk"
	"github.com/lumenlang/lumen/pkg/compiler"
	"github.com/lumenlang/lumen/pkg/natives"
	"github.com/lumenlang/lumen/pkg/vm"
)

// Exit codes: 0 success, 64 usage, 65 compile error, 70 runtime error,
// 74 I/O error.
const (
	exitOK           = 0
	exitUsage        = 64
	exitCompileError = 65
	exitRuntimeError = 70
	exitIOError      = 74
)

// envConfig holds the LUMEN_* environment overrides caarlos0/env
// layers on top of whatever --trace/--gc-stress flags urfave/cli
// parsed from argv. newVM ORs each env value with its flag, so either
// source can turn an option on and neither can turn it off.
type envConfig struct {
	Trace    bool `env:"LUMEN_TRACE" envDefault:"false"`
	GCStress bool `env:"LUMEN_GC_STRESS" envDefault:"false"`
}

func main() {
	app := &cli.App{
		Name:      "lumen",
		Usage:     "a small class-based scripting language",
		ArgsUsage: "[script]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "trace", Usage: "log each GC cycle to stderr"},
			&cli.BoolFlag{Name: "trace-exec", Usage: "also log each dispatched opcode (implies --trace)"},
			&cli.BoolFlag{Name: "gc-stress", Usage: "collect before every allocation"},
		},
		Commands: []*cli.Command{
			{
				Name:      "disasm",
				Usage:     "compile a script without running it and print its bytecode",
				ArgsUsage: "<script>",
				Action:    disasmCommand,
			},
		},
		Action: runCommand,
	}

	// A returned ExitCoder (every error path below returns one via
	// cli.Exit) is already turned into the right os.Exit call inside
	// Run itself; anything else reaching here is a flag-parsing
	// failure, which is a usage error.
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func loadEnvConfig() envConfig {
	var cfg envConfig
	// Malformed LUMEN_* values are silently ignored here: they are an
	// optional override of flags that already have usable defaults,
	// not a required input, so failing the whole process over an
	// env-parsing error would be disproportionate.
	_ = env.Parse(&cfg)
	return cfg
}

func newVM(c *cli.Context) *vm.VM {
	cfg := loadEnvConfig()
	trace := c.Bool("trace") || c.Bool("trace-exec") || cfg.Trace
	stress := c.Bool("gc-stress") || cfg.GCStress

	var opts []vm.Option
	if trace {
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
		opts = append(opts, vm.WithTrace(logger, c.Bool("trace-exec")))
	}
	if stress {
		opts = append(opts, vm.WithGCStress())
	}

	v := vm.New(opts...)
	natives.Register(v.Heap(), v.DefineNative)
	return v
}

func runCommand(c *cli.Context) error {
	v := newVM(c)

	if c.Args().Len() == 0 {
		runREPL(v)
		return nil
	}
	return runFile(v, c.Args().First())
}

func runFile(v *vm.VM, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err, exitIOError)
	}

	result, err := v.Interpret(string(source))
	switch result {
	case vm.InterpretCompileError:
		return cli.Exit(err, exitCompileError)
	case vm.InterpretRuntimeError:
		return cli.Exit(err, exitRuntimeError)
	}
	return nil
}

// runREPL runs a line-based read-eval-print loop over one persistent
// VM: each line is compiled and run as its own script, so top-level
// `var` declarations become globals that remain visible to every
// subsequent line.
func runREPL(v *vm.VM) {
	fmt.Println("lumen REPL — Ctrl-D to exit")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := scanner.Text()
		switch line {
		case "":
			continue
		case ":globals":
			for _, name := range v.GlobalNames() {
				fmt.Println(" ", name)
			}
			continue
		}
		if _, err := v.Interpret(line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

func disasmCommand(c *cli.Context) error {
	if c.Args().Len() == 0 {
		return cli.Exit("Usage: lumen disasm <script>", exitUsage)
	}
	path := c.Args().First()
	source, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(err, exitIOError)
	}

	v := vm.New()
	fn, err := compiler.Compile(string(source), v.Heap())
	if err != nil {
		return cli.Exit(err, exitCompileError)
	}
	fmt.Print(chunk.Disassemble(fn.Chunk, path))
	return nil
}
