package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	// Import for side effects: register generator backends via init().
	_ "github.com/ahaiya/essaydeliberate/internal/generators/bedrock"
	_ "github.com/ahaiya/essaydeliberate/internal/generators/openai"
)

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("essaydqn"),
		kong.Description("essaydqn - panel-convergence controller for multi-agent essay deliberation"),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			if code != 0 {
				os.Exit(2)
			}
			os.Exit(0)
		}),
	)

	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
