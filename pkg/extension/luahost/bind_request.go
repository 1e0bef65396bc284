package luahost

import (
	"github.com/mailclean/mailclean/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const sanitizeRequestName = "sanitize_request"

func registerSanitizeRequestType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(sanitizeRequestName)
	ls.SetGlobal(sanitizeRequestName, mt)

	ls.SetField(mt, "__index", ls.NewFunction(sanitizeRequestIndex))
}

func wrapSanitizeRequest(ls *lua.LState, val *event.SanitizeRequest) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(sanitizeRequestName))

	return ud
}

func checkSanitizeRequest(ls *lua.LState, pos int) *event.SanitizeRequest {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.SanitizeRequest); ok {
		return v
	}
	ls.ArgError(pos, sanitizeRequestName+" expected")
	return nil
}

// Read-only field access.  The options field refers to the request's own copy, scripts may
// modify and return it.
func sanitizeRequestIndex(ls *lua.LState) int {
	r := checkSanitizeRequest(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "origin":
		ls.Push(lua.LString(r.Origin))
	case "subject":
		ls.Push(lua.LString(r.Subject))
	case "from":
		ls.Push(wrapMailAddress(ls, r.From))
	case "size":
		ls.Push(lua.LNumber(r.Size))
	case "options":
		ls.Push(wrapOptions(ls, &r.Options))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}
