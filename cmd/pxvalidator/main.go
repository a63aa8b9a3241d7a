// pxvalidator - checks identification files of a proteomics submission
// against their peak lists
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/ChrisMcGann/pxvalidator/cmd/pxvalidator/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cmd.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cmd.ExitCode(err))
	}
}
