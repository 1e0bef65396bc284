package config

import (
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mailclean/mailclean/pkg/sanitize"
)

const (
	prefix      = "mailclean"
	tableFormat = `mailclean is configured via the environment. The following environment
variables can be used:

KEY	DEFAULT	REQUIRED	DESCRIPTION
{{range .}}{{usage_key .}}	{{usage_default .}}	{{usage_required .}}	{{usage_description .}}
{{end}}`
)

var (
	// Version of this build, set by main
	Version = ""

	// BuildDate for this build, set by main
	BuildDate = ""
)

// Root wraps all other configurations.
type Root struct {
	LogLevel string `required:"true" default:"info" desc:"debug, info, warn, or error"`
	Sanitize Sanitize
	Web      Web
	Storage  Storage
	Lua      Lua
}

// Sanitize contains the default sanitizer options, requests may override them.
type Sanitize struct {
	PolicyFile         string `desc:"Policy description file, built-in policy if empty"`
	MaxContentSize     int    `default:"0" desc:"Content size budget in characters, 0 is unlimited"`
	DropExternalImages bool   `default:"false" desc:"Replace external image sources by default?"`
	SuppressLinks      bool   `default:"false" desc:"Disable links by default?"`
	ReplaceURLs        bool   `default:"false" desc:"Normalize URLs in attributes by default?"`
	CSSClassPrefix     string `desc:"Default prefix for class names, ids and style selectors"`
}

// Options returns the configured defaults as engine options.
func (s Sanitize) Options() sanitize.Options {
	return sanitize.Options{
		MaxContentSize:     s.MaxContentSize,
		DropExternalImages: s.DropExternalImages,
		SuppressLinks:      s.SuppressLinks,
		ReplaceURLs:        s.ReplaceURLs,
		CSSClassPrefix:     s.CSSClassPrefix,
	}
}

// Web contains the HTTP server configuration.
type Web struct {
	Addr           string `required:"true" default:"0.0.0.0:9000" desc:"Web server IP4 host:port"`
	BasePath       string `default:"" desc:"Base path prefix for API URLs"`
	MonitorHistory int    `required:"true" default:"30" desc:"Monitor remembered results"`
	MaxRequestSize int64  `required:"true" default:"10240000" desc:"Maximum request body size"`
	PProf          bool   `required:"true" default:"false" desc:"Expose profiling tools on /debug/pprof"`
}

// Storage contains the result store configuration.
type Storage struct {
	ResultCap       int           `required:"true" default:"500" desc:"Maximum stored results, 0 is unlimited"`
	RetentionPeriod time.Duration `required:"true" default:"24h" desc:"Duration to retain results"`
	RetentionSleep  time.Duration `required:"true" default:"50ms" desc:"Duration to sleep between retention scans"`
}

// Lua contains the Lua extension host configuration.
type Lua struct {
	Path string `required:"false" default:"mailclean.lua" desc:"Lua script path"`
}

// Process loads and parses configuration from the environment.
func Process() (*Root, error) {
	c := &Root{}
	err := envconfig.Process(prefix, c)
	return c, err
}

// Usage prints out the envconfig usage to Stderr.
func Usage() {
	tabs := tabwriter.NewWriter(os.Stderr, 1, 0, 4, ' ', 0)
	if err := envconfig.Usagef(prefix, &Root{}, tabs, tableFormat); err != nil {
		log.Fatalf("Unable to parse env config: %v", err)
	}
	tabs.Flush()
}
