package luahost

import (
	"github.com/mailclean/mailclean/pkg/sanitize"
	lua "github.com/yuin/gopher-lua"
)

const optionsName = "options"

func registerOptionsType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(optionsName)
	ls.SetGlobal(optionsName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newOptions))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(optionsIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(optionsNewIndex))
}

func newOptions(ls *lua.LState) int {
	ls.Push(wrapOptions(ls, &sanitize.Options{}))
	return 1
}

func wrapOptions(ls *lua.LState, val *sanitize.Options) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(optionsName))

	return ud
}

func unwrapOptions(lv lua.LValue) (*sanitize.Options, bool) {
	if ud, ok := lv.(*lua.LUserData); ok {
		if v, ok := ud.Value.(*sanitize.Options); ok {
			return v, true
		}
	}
	return nil, false
}

func checkOptions(ls *lua.LState, pos int) *sanitize.Options {
	if v, ok := unwrapOptions(ls.Get(pos)); ok {
		return v
	}
	ls.ArgError(pos, optionsName+" expected")
	return nil
}

// Gets a field value from the Options user object.  This emulates a Lua table, allowing
// `opts.css_only` instead of a Lua object syntax of `opts:css_only()`.
func optionsIndex(ls *lua.LState) int {
	o := checkOptions(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "max_content_size":
		ls.Push(lua.LNumber(o.MaxContentSize))
	case "suppress_links":
		ls.Push(lua.LBool(o.SuppressLinks))
	case "drop_external_images":
		ls.Push(lua.LBool(o.DropExternalImages))
	case "replace_urls":
		ls.Push(lua.LBool(o.ReplaceURLs))
	case "css_class_prefix":
		ls.Push(lua.LString(o.CSSClassPrefix))
	case "replace_body_with_container":
		ls.Push(lua.LBool(o.ReplaceBodyWithContainer))
	case "css_only":
		ls.Push(lua.LBool(o.CSSOnly))
	default:
		// Unknown field.
		ls.Push(lua.LNil)
	}

	return 1
}

// Sets a field value on the Options user object.
func optionsNewIndex(ls *lua.LState) int {
	o := checkOptions(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "max_content_size":
		o.MaxContentSize = ls.CheckInt(3)
	case "suppress_links":
		o.SuppressLinks = ls.CheckBool(3)
	case "drop_external_images":
		o.DropExternalImages = ls.CheckBool(3)
	case "replace_urls":
		o.ReplaceURLs = ls.CheckBool(3)
	case "css_class_prefix":
		o.CSSClassPrefix = ls.CheckString(3)
	case "replace_body_with_container":
		o.ReplaceBodyWithContainer = ls.CheckBool(3)
	case "css_only":
		o.CSSOnly = ls.CheckBool(3)
	default:
		ls.RaiseError("invalid index %q", index)
	}

	return 0
}
