// Package luahost lets Lua scripts listen to mailclean extension events.
package luahost

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/mailclean/mailclean/pkg/config"
	"github.com/mailclean/mailclean/pkg/extension"
	"github.com/mailclean/mailclean/pkg/extension/event"
	"github.com/mailclean/mailclean/pkg/sanitize"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// listenerName is used to register Lua functions with the extension brokers.
const listenerName = "lua"

// Host of Lua extensions.
type Host struct {
	Functions []string // Functions detected in lua script.
	extHost   *extension.Host
	pool      *statePool
	logger    zerolog.Logger
}

// New constructs a new Lua Host, pre-compiling the source.  Returns a nil Host if the script does
// not exist.
func New(conf config.Lua, extHost *extension.Host, logger zerolog.Logger) (*Host, error) {
	scriptPath := conf.Path
	if scriptPath == "" {
		return nil, nil
	}

	logger = logger.With().Str("module", "lua").Logger()
	startLog := logger.With().Str("phase", "startup").Str("path", scriptPath).Logger()

	// Pre-load, parse, and compile script.
	if fi, err := os.Stat(scriptPath); err != nil {
		startLog.Info().Msg("Script file not found")
		return nil, nil
	} else if fi.IsDir() {
		return nil, fmt.Errorf("lua script %v is a directory", scriptPath)
	}

	startLog.Info().Msg("Loading script")
	file, err := os.Open(scriptPath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return NewFromReader(logger, extHost, bufio.NewReader(file), scriptPath)
}

// NewFromReader constructs a new Lua Host, loading Lua source from the provided reader.  The
// provided path is used in logging and error messages.
func NewFromReader(
	logger zerolog.Logger,
	extHost *extension.Host,
	r io.Reader,
	path string,
) (*Host, error) {
	// Pre-parse, and compile script.
	chunk, err := parse.Parse(r, path)
	if err != nil {
		return nil, err
	}
	proto, err := lua.Compile(chunk, path)
	if err != nil {
		return nil, err
	}

	// Build the pool and confirm LState is retrievable.
	pool := newStatePool(logger, proto)
	h := &Host{extHost: extHost, pool: pool, logger: logger}
	ls, err := pool.getState()
	if err != nil {
		return nil, err
	}
	defer pool.putState(ls)

	if err := h.wireFunctions(ls); err != nil {
		return nil, err
	}

	return h, nil
}

// CreateChannel creates a channel and places it into the named global variable in newly created
// LStates.
func (h *Host) CreateChannel(name string) chan lua.LValue {
	return h.pool.createChannel(name)
}

// wireFunctions registers event listeners for each function the script defined.
func (h *Host) wireFunctions(ls *lua.LState) error {
	mc, err := getMailclean(ls)
	if err != nil {
		return err
	}

	events := h.extHost.Events
	if mc.Before.Sanitize != nil {
		h.Functions = append(h.Functions, "before.sanitize")
		events.BeforeSanitize.AddListener(listenerName, h.handleBeforeSanitize)
	}
	if mc.After.ResultStored != nil {
		h.Functions = append(h.Functions, "after.result_stored")
		events.AfterResultStored.AddListener(listenerName, h.handleAfterResultStored)
	}
	if mc.After.ResultDeleted != nil {
		h.Functions = append(h.Functions, "after.result_deleted")
		events.AfterResultDeleted.AddListener(listenerName, h.handleAfterResultDeleted)
	}

	h.logger.Info().Strs("functions", h.Functions).Msg("Wired Lua functions")
	return nil
}

// prepareFuncCall checks out an LState and looks up the named function in it.  The caller must
// return the LState to the pool when ok is true.
func (h *Host) prepareFuncCall(
	name string,
	pick func(*Mailclean) *lua.LFunction,
) (logger zerolog.Logger, ls *lua.LState, fn *lua.LFunction, ok bool) {
	logger = h.logger.With().Str("event", name).Logger()

	ls, err := h.pool.getState()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to get Lua state instance from pool")
		return logger, nil, nil, false
	}

	mc, err := getMailclean(ls)
	if err != nil {
		h.pool.putState(ls)
		logger.Error().Err(err).Msg("Failed to get mailclean object")
		return logger, nil, nil, false
	}

	fn = pick(mc)
	if fn == nil {
		h.pool.putState(ls)
		logger.Warn().Msg("Lua function no longer defined")
		return logger, nil, nil, false
	}

	return logger, ls, fn, true
}

func (h *Host) handleBeforeSanitize(req event.SanitizeRequest) *sanitize.Options {
	logger, ls, fn, ok := h.prepareFuncCall("before.sanitize",
		func(mc *Mailclean) *lua.LFunction { return mc.Before.Sanitize })
	if !ok {
		return nil
	}
	defer h.pool.putState(ls)

	logger.Debug().Str("origin", req.Origin).Msg("Calling Lua function")
	if err := ls.CallByParam(
		lua.P{Fn: fn, NRet: 1, Protect: true},
		wrapSanitizeRequest(ls, &req),
	); err != nil {
		logger.Error().Err(err).Msg("Failed to call Lua function")
		return nil
	}

	lval := ls.Get(-1)
	ls.Pop(1)
	if lval == lua.LNil {
		return nil
	}
	opts, ok := unwrapOptions(lval)
	if !ok {
		logger.Error().Str("type", lval.Type().String()).
			Msg("Lua function returned an unexpected value, wanted options or nil")
		return nil
	}

	result := *opts
	return &result
}

func (h *Host) handleAfterResultStored(r event.ResultMetadata) {
	h.callAfter("after.result_stored", r,
		func(mc *Mailclean) *lua.LFunction { return mc.After.ResultStored })
}

func (h *Host) handleAfterResultDeleted(r event.ResultMetadata) {
	h.callAfter("after.result_deleted", r,
		func(mc *Mailclean) *lua.LFunction { return mc.After.ResultDeleted })
}

func (h *Host) callAfter(
	name string,
	r event.ResultMetadata,
	pick func(*Mailclean) *lua.LFunction,
) {
	logger, ls, fn, ok := h.prepareFuncCall(name, pick)
	if !ok {
		return
	}
	defer h.pool.putState(ls)

	logger.Debug().Str("id", r.ID).Msg("Calling Lua function")
	if err := ls.CallByParam(
		lua.P{Fn: fn, NRet: 0, Protect: true},
		wrapResult(ls, &r),
	); err != nil {
		logger.Error().Err(err).Msg("Failed to call Lua function")
	}
}
