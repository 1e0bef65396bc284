package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/google/subcommands"
	"github.com/mailclean/mailclean/pkg/rest/client"
)

type messageCmd struct {
	opts   optionFlags
	output string
}

func (*messageCmd) Name() string {
	return "message"
}

func (*messageCmd) Synopsis() string {
	return "sanitize the HTML body of a MIME message"
}

func (*messageCmd) Usage() string {
	return `message [flags] <file|->:
	sanitize the HTML body of the RFC 5322 message in file, or stdin for -
`
}

func (m *messageCmd) SetFlags(f *flag.FlagSet) {
	m.opts.SetFlags(f)
	f.StringVar(&m.output, "output", "html", "output format: html or json")
}

func (m *messageCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	name := f.Arg(0)
	if name == "" {
		return usage("file required")
	}
	if m.output != "html" && m.output != "json" {
		return usage("unknown output type: " + m.output)
	}
	in, err := openInput(name)
	if err != nil {
		return fatal("Couldn't open input", err)
	}
	defer in.Close()

	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	result, err := c.SanitizeMessage(ctx, in, m.opts.overrides(f))
	if err != nil {
		return fatal("REST call failed", err)
	}
	return outputResult(result, m.output)
}

func readAll(r io.Reader) (string, error) {
	b := &strings.Builder{}
	_, err := io.Copy(b, r)
	return b.String(), err
}

func outputResult(result *client.Result, output string) subcommands.ExitStatus {
	if output == "json" {
		if err := outputJSON(result); err != nil {
			return fatal("Error", err)
		}
		return subcommands.ExitSuccess
	}
	fmt.Println(result.HTML)
	reportFlags(result.ImageURLRedacted, result.SizeExceeded)
	return subcommands.ExitSuccess
}
