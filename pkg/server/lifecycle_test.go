package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/message"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Root {
	return &config.Root{
		Sanitize: config.Sanitize{CSSClassPrefix: "mc"},
		Web:      config.Web{MonitorHistory: 5},
		Storage:  config.Storage{ResultCap: 10, RetentionPeriod: time.Hour},
		Lua:      config.Lua{Path: filepath.Join(t.TempDir(), "missing.lua")},
	}
}

func TestLoadPolicyDefault(t *testing.T) {
	p, err := loadPolicy("")
	require.NoError(t, err)
	assert.Same(t, sanitize.DefaultPolicy(), p)
}

func TestLoadPolicyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.txt")
	require.NoError(t, os.WriteFile(path, []byte("tag p = align\nstyle color = *\n"), 0o600))

	p, err := loadPolicy(path)
	require.NoError(t, err)
	_, ok := p.LookupTag("p")
	assert.True(t, ok)
	_, ok = p.LookupTag("table")
	assert.False(t, ok)
}

func TestLoadPolicyErrors(t *testing.T) {
	_, err := loadPolicy(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.txt")
	require.NoError(t, os.WriteFile(path, []byte("tag p align\n"), 0o600))
	_, err = loadPolicy(path)
	assert.Error(t, err)
}

func TestFullAssembly(t *testing.T) {
	svcs, err := FullAssembly(testConfig(t), make(chan bool))
	require.NoError(t, err)
	assert.Nil(t, svcs.LuaHost, "no script present")

	r, err := svcs.Manager.Sanitize(&message.Request{
		Origin:  "html",
		HTML:    `<p class="lead">x</p>`,
		Options: svcs.Manager.DefaultOptions(),
	})
	require.NoError(t, err)
	assert.Contains(t, r.HTML, `class="mc-lead"`)

	got, err := svcs.Store.GetResult(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.HTML, got.HTML)
}

func TestFullAssemblyWithLua(t *testing.T) {
	conf := testConfig(t)
	conf.Lua.Path = filepath.Join(t.TempDir(), "mailclean.lua")
	script := `
		function mailclean.before.sanitize(req)
			local opts = req.options
			opts.css_class_prefix = "lua"
			return opts
		end
	`
	require.NoError(t, os.WriteFile(conf.Lua.Path, []byte(script), 0o600))

	svcs, err := FullAssembly(conf, make(chan bool))
	require.NoError(t, err)
	require.NotNil(t, svcs.LuaHost)
	assert.Equal(t, []string{"before.sanitize"}, svcs.LuaHost.Functions)

	r, err := svcs.Manager.Sanitize(&message.Request{
		Origin:  "html",
		HTML:    `<p class="lead">x</p>`,
		Options: svcs.Manager.DefaultOptions(),
	})
	require.NoError(t, err)
	assert.Contains(t, r.HTML, `class="lua-lead"`)
}

func TestFullAssemblyBadPolicy(t *testing.T) {
	conf := testConfig(t)
	conf.Sanitize.PolicyFile = filepath.Join(t.TempDir(), "missing.txt")
	_, err := FullAssembly(conf, make(chan bool))
	assert.Error(t, err)
}
