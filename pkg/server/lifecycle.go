// Package server wires the mailclean services together.
package server

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/luahost"
	"github.com/mailclean/mailclean/pkg/message"
	"github.com/mailclean/mailclean/pkg/msghub"
	"github.com/mailclean/mailclean/pkg/rest"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/mailclean/mailclean/pkg/server/web"
	"github.com/mailclean/mailclean/pkg/storage"
	"github.com/mailclean/mailclean/pkg/storage/mem"
	"github.com/mailclean/mailclean/pkg/stringutil"
	"github.com/rs/zerolog/log"
)

// Services holds the configured services.
type Services struct {
	ExtHost          *extension.Host
	LuaHost          *luahost.Host
	Manager          *message.StoreManager
	MsgHub           *msghub.Hub
	RetentionScanner *storage.RetentionScanner
	Store            storage.Store
}

// FullAssembly wires up a complete mailclean environment without starting it.
func FullAssembly(conf *config.Root, shutdownChan chan bool) (*Services, error) {
	// Configure extensions.
	extHost := extension.NewHost()
	luaHost, err := luahost.New(conf.Lua, extHost, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("lua initialization failed: %w", err)
	}

	policy, err := loadPolicy(conf.Sanitize.PolicyFile)
	if err != nil {
		return nil, err
	}

	// Configure storage.
	store, err := mem.New(conf.Storage, extHost)
	if err != nil {
		return nil, err
	}

	msgHub := msghub.New(conf.Web.MonitorHistory, extHost)
	mmanager := &message.StoreManager{
		Sanitizer: sanitize.New(policy),
		Defaults:  conf.Sanitize.Options(),
		Store:     store,
		ExtHost:   extHost,
	}
	retentionScanner := storage.NewRetentionScanner(conf.Storage, store, shutdownChan)

	return &Services{
		ExtHost:          extHost,
		LuaHost:          luaHost,
		Manager:          mmanager,
		MsgHub:           msgHub,
		RetentionScanner: retentionScanner,
		Store:            store,
	}, nil
}

// Prod wires up and starts the production mailclean environment.
func Prod(rootCtx context.Context, shutdownChan chan bool, conf *config.Root) (*Services, error) {
	svcs, err := FullAssembly(conf, shutdownChan)
	if err != nil {
		return nil, err
	}

	go svcs.MsgHub.Start(rootCtx)

	// Start Retention scanner.
	svcs.RetentionScanner.Start()

	// Configure routes and start HTTP server.
	prefix := stringutil.MakePathPrefixer(conf.Web.BasePath)
	rest.SetupRoutes(web.Router.PathPrefix(prefix("/api/")).Subrouter())
	web.Initialize(conf, shutdownChan, svcs.Manager, svcs.MsgHub)
	go web.Start(rootCtx)

	return svcs, nil
}

// loadPolicy reads the policy description file, the built-in policy is used when path is empty.
func loadPolicy(path string) (*sanitize.Policy, error) {
	if path == "" {
		return sanitize.DefaultPolicy(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("policy file: %w", err)
	}
	defer f.Close()

	p, err := sanitize.ParsePolicy(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	log.Info().Str("module", "server").Str("phase", "startup").Str("path", path).
		Int("tags", len(p.Tags())).Int("styleProperties", len(p.StyleProperties())).
		Msg("Loaded sanitizer policy")
	return p, nil
}
