// Package main provides the entry point for the profilecore CLI.
package main

import "os"

func main() {
	os.Exit(Execute())
}
