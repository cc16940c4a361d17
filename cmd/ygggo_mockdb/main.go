package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/kong"
	ggm "github.com/yggai/ygggo_mockdb"
)

const version = "v0.1.0"

var ErrInvalidFixtures = errors.New("one or more fixtures are invalid")

// Context represents the global context for commands
type Context struct {
	Out   io.Writer
	Quiet bool
}

// CheckCmd validates fixture files and prints the queues they script
type CheckCmd struct {
	Files []string `arg:"" name:"file" help:"Fixture files to check" type:"existingfile"`
}

// Run executes the check command
func (cmd *CheckCmd) Run(ctx *Context) error {
	failed := false
	for _, path := range cmd.Files {
		fixture, err := ggm.LoadFixtureFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %v\n", err)
			failed = true
			continue
		}
		// dry run against a scratch factory
		if err := fixture.Apply(ggm.NewMockClientFactory()); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", path, err)
			failed = true
			continue
		}
		if ctx.Quiet {
			continue
		}
		fmt.Fprintf(ctx.Out, "ok   %s\n", path)
		printSummary(ctx.Out, fixture.Summary())
	}
	if failed {
		return ErrInvalidFixtures
	}
	return nil
}

func printSummary(out io.Writer, queues []ggm.QueueSummary) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  CONNECTION\tCOMMAND\tRESULTS\tFAILURES")
	for _, q := range queues {
		fmt.Fprintf(w, "  %s\t%s\t%d\t%d\n", q.Connection, q.Command, q.Results, q.Failures)
	}
	w.Flush()
}

// VersionCmd represents the version command
type VersionCmd struct{}

// Run executes the version command
func (cmd *VersionCmd) Run(ctx *Context) error {
	fmt.Fprintf(ctx.Out, "ygggo_mockdb %s\n", version)
	return nil
}

// CLI represents the command-line interface
var CLI struct {
	Quiet   bool       `help:"Only report failures" short:"q"`
	Check   CheckCmd   `cmd:"" help:"Validate result-script fixture files"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("ygggo_mockdb"),
		kong.Description("Tools for ygggo_mockdb result scripts."),
	)

	err := ctx.Run(&Context{Out: os.Stdout, Quiet: CLI.Quiet})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
