// Command routectl queries the route graph either in-process, over the local
// data directory and DATABASE_URL, or against a running API with --server.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
