// Command admin bootstraps the schema, accounts and access tokens directly
// against the configured store.
package main

import "os"

func main() {
	if err := newRootCmd(wireDeps).Execute(); err != nil {
		os.Exit(1)
	}
}
