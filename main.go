package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"omniswap/cmd"
)

func main() {
	// A .env file is optional; environment and config files cover the
	// same settings.
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
