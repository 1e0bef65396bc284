package main

import (
	"flag"
	"io"
	"os"

	"github.com/mailclean/mailclean/pkg/rest/model"
	"github.com/mailclean/mailclean/pkg/sanitize"
)

// optionFlags holds the sanitizer option flags shared by the sanitize and message commands.
type optionFlags struct {
	maxSize       int
	prefix        string
	suppressLinks bool
	dropImages    bool
	replaceURLs   bool
	container     bool
	cssOnly       bool
}

func (o *optionFlags) SetFlags(f *flag.FlagSet) {
	f.IntVar(&o.maxSize, "max-size", 0, "content size budget in characters, 0 is unlimited")
	f.StringVar(&o.prefix, "prefix", "", "prefix for class names, ids and style selectors")
	f.BoolVar(&o.suppressLinks, "suppress-links", false, "disable links")
	f.BoolVar(&o.dropImages, "drop-images", false, "replace external image sources")
	f.BoolVar(&o.replaceURLs, "replace-urls", false, "normalize URLs in attributes")
	f.BoolVar(&o.container, "container", false, "replace the body element with a div container")
	f.BoolVar(&o.cssOnly, "css-only", false, "only sanitize style sheets and style attributes")
}

// overrides returns the options explicitly set on the command line, the server keeps its defaults
// for the rest.
func (o *optionFlags) overrides(f *flag.FlagSet) *model.JSONSanitizeOptionsV1 {
	m := &model.JSONSanitizeOptionsV1{}
	f.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "max-size":
			m.MaxContentSize = &o.maxSize
		case "prefix":
			m.CSSClassPrefix = &o.prefix
		case "suppress-links":
			m.SuppressLinks = &o.suppressLinks
		case "drop-images":
			m.DropExternalImages = &o.dropImages
		case "replace-urls":
			m.ReplaceURLs = &o.replaceURLs
		case "container":
			m.ReplaceBodyWithContainer = &o.container
		case "css-only":
			m.CSSOnly = &o.cssOnly
		}
	})
	return m
}

// options returns the flags as engine options, for in-process sanitizing.
func (o *optionFlags) options() sanitize.Options {
	return sanitize.Options{
		MaxContentSize:           o.maxSize,
		SuppressLinks:            o.suppressLinks,
		DropExternalImages:       o.dropImages,
		ReplaceURLs:              o.replaceURLs,
		CSSClassPrefix:           o.prefix,
		ReplaceBodyWithContainer: o.container,
		CSSOnly:                  o.cssOnly,
	}
}

// openInput opens the named file, or stdin for "-".
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(name)
}
