package main

import (
	"fmt"
	"os"

	"github.com/lowmess/vitals/cli"

	"github.com/joho/godotenv"
)

func main() {
	// Secrets may be provided through a .env file during development.
	_ = godotenv.Load()

	w := os.Stdout
	switch c := cli.Parse(w, os.Args).(type) {
	case cli.CommandServe:
		serve(w, c)
	default:
		if c != nil {
			panic(fmt.Errorf("unexpected command: %#v", c))
		}
	}
}
