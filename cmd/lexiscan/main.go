package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"lexiscan.ai/cli/internal/interfaces/cli"
	"lexiscan.ai/cli/internal/interfaces/di"
)

func main() {
	// Local .env is optional; missing file is fine.
	_ = godotenv.Load()

	container, err := di.NewContainer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	cli.Execute(container.GetCLIContainer())
}
