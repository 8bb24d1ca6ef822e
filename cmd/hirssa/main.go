// Command hirssa lowers CUE-defined functions to a control-flow graph and
// converts it to SSA form.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/roach88/hirssa/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
