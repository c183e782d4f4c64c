package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "neotype",
		Usage: "Typed object-graph mapping for Neo4j",
		Commands: []*cli.Command{
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "neotype: %v\n", err)
		os.Exit(1)
	}
}
