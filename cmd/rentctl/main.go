// Package main is rentctl, a terminal client for landlords and tenants. It
// signs in against Supabase Auth, keeps the session on disk and talks to
// PostgREST with the signed-in user's token.
package main

import (
	"fmt"
	"os"
)

func main() {
	a := newApp(os.Stdin, os.Stdout, os.Stderr)
	if err := a.rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, a.describeError(err))
		os.Exit(1)
	}
}
