// Package main provides the gameweek CLI, which reviews tracked players'
// chess games of the past week.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
