package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"
	"github.com/mailclean/mailclean/pkg/rest/client"
)

type showCmd struct {
	html bool
}

func (*showCmd) Name() string {
	return "show"
}

func (*showCmd) Synopsis() string {
	return "show a stored result"
}

func (*showCmd) Usage() string {
	return `show [flags] <id>:
	show the stored result as JSON, id may be "latest"
`
}

func (s *showCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&s.html, "html", false, "output only the sanitized document")
}

func (s *showCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	id := f.Arg(0)
	if id == "" {
		return usage("id required")
	}
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}

	if s.html {
		doc, err := c.GetResultHTML(ctx, id)
		if err != nil {
			return fatal("REST call failed", err)
		}
		fmt.Println(doc)
		return subcommands.ExitSuccess
	}

	result, err := c.GetResult(ctx, id)
	if err != nil {
		return fatal("REST call failed", err)
	}
	if err := outputJSON(result); err != nil {
		return fatal("Error", err)
	}
	return subcommands.ExitSuccess
}
