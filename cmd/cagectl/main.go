// Command cagectl inspects cage lineage and runs cage lifecycle transitions
// against the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cagectl:", err)
		exitFunc(1)
	}
}

func run(ctx context.Context, args []string, out, errOut io.Writer) error {
	a := newApp(out, errOut)
	defer func() { _ = a.close() }()
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}
