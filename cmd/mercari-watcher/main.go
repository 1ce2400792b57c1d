// Package main is the entry point for mercari-watcher.
package main

import (
	"os"

	"github.com/ksaito/mercari-watcher/cmd/mercari-watcher/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
