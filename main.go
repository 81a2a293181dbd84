// Package main is the entry point for the freetron CLI application.
// It uploads PDF forms to a freetron server and manages the processed records.
package main

import (
	"freetron/cli/cmd"
)

func main() {
	cmd.Execute()
}
