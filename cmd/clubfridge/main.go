// Command clubfridge runs the club fridge checkout terminal.
package main

import (
	"context"
	"os"

	"github.com/roach88/clubfridge/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Stdout, os.Stderr, os.Args[1:]))
}
