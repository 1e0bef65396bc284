package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/mailclean/mailclean/pkg/rest/client"
)

type listCmd struct{}

func (*listCmd) Name() string {
	return "list"
}

func (*listCmd) Synopsis() string {
	return "list stored results"
}

func (*listCmd) Usage() string {
	return `list:
	list stored result IDs and subjects, oldest first
`
}

func (l *listCmd) SetFlags(f *flag.FlagSet) {}

func (l *listCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	// Setup rest client
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	// Get list
	headers, err := c.ListResults(ctx)
	if err != nil {
		return fatal("REST call failed", err)
	}
	for _, h := range headers {
		fmt.Printf("%s\t%s\t%s\n", h.ID, h.Origin, h.Subject)
	}

	return subcommands.ExitSuccess
}
