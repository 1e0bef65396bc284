package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"
	"github.com/mailclean/mailclean/pkg/rest/client"
	"github.com/mailclean/mailclean/pkg/sanitize"
)

type sanitizeCmd struct {
	opts   optionFlags
	local  bool
	output string
}

func (*sanitizeCmd) Name() string {
	return "sanitize"
}

func (*sanitizeCmd) Synopsis() string {
	return "sanitize an HTML document"
}

func (*sanitizeCmd) Usage() string {
	return `sanitize [flags] <file|->:
	sanitize the HTML document in file, or stdin for -
`
}

func (s *sanitizeCmd) SetFlags(f *flag.FlagSet) {
	s.opts.SetFlags(f)
	f.BoolVar(&s.local, "local", false, "sanitize in-process instead of calling the server")
	f.StringVar(&s.output, "output", "html", "output format: html or json")
}

func (s *sanitizeCmd) Execute(
	ctx context.Context, f *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	name := f.Arg(0)
	if name == "" {
		return usage("file required")
	}
	if s.output != "html" && s.output != "json" {
		return usage("unknown output type: " + s.output)
	}
	in, err := openInput(name)
	if err != nil {
		return fatal("Couldn't open input", err)
	}
	defer in.Close()

	if s.local {
		if s.output != "html" {
			return usage("-local only supports html output")
		}
		out, res, err := sanitize.New(nil).HTML(in, s.opts.options())
		if err != nil {
			return fatal("Sanitize failed", err)
		}
		fmt.Println(out)
		reportFlags(res.ImageURLRedacted, res.SizeExceeded)
		return subcommands.ExitSuccess
	}

	buf, err := readAll(in)
	if err != nil {
		return fatal("Couldn't read input", err)
	}
	c, err := client.New(baseURL())
	if err != nil {
		return fatal("Couldn't build client", err)
	}
	result, err := c.Sanitize(ctx, buf, s.opts.overrides(f))
	if err != nil {
		return fatal("REST call failed", err)
	}
	return outputResult(result, s.output)
}

// reportFlags writes result flags to stderr, keeping stdout for the document.
func reportFlags(imageRedacted, sizeExceeded bool) {
	if imageRedacted {
		fmt.Fprintln(os.Stderr, "note: external image URLs were redacted")
	}
	if sizeExceeded {
		fmt.Fprintln(os.Stderr, "note: content size budget exceeded, output truncated")
	}
}
