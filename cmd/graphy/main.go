// Package main is the graphy command line: it builds service dependency graphs from span
// files or a Zipkin backend, runs windowed analyses and serves the HTTP API.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
