// Package main is the rigfit command.
package main

import (
	"log"
	"os"

	rigcli "go.viam.com/rigfit/cli"
)

func main() {
	app := rigcli.NewApp(os.Stdout, os.Stderr)
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
