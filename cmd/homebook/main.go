package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/cleared-dev/homebook/internal/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := commands.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(commands.ExitCode(err))
	}
}
