// Command kbretrieve ingests structured technical documents and serves
// semantic retrieval over them via a small, fixed set of MCP tool calls.
package main

import (
	"fmt"
	"os"

	"github.com/brannigan-labs/kbretrieve/cmd/kbretrieve/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
