package luahost

import (
	"github.com/mailclean/mailclean/pkg/extension/event"
	lua "github.com/yuin/gopher-lua"
)

const resultName = "result"

func registerResultType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(resultName)
	ls.SetGlobal(resultName, mt)

	ls.SetField(mt, "__index", ls.NewFunction(resultIndex))
}

func wrapResult(ls *lua.LState, val *event.ResultMetadata) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(resultName))

	return ud
}

func checkResult(ls *lua.LState, pos int) *event.ResultMetadata {
	ud := ls.CheckUserData(pos)
	if v, ok := ud.Value.(*event.ResultMetadata); ok {
		return v
	}
	ls.ArgError(pos, resultName+" expected")
	return nil
}

func resultIndex(ls *lua.LState) int {
	r := checkResult(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "id":
		ls.Push(lua.LString(r.ID))
	case "origin":
		ls.Push(lua.LString(r.Origin))
	case "subject":
		ls.Push(lua.LString(r.Subject))
	case "from":
		ls.Push(wrapMailAddress(ls, r.From))
	case "date":
		ls.Push(lua.LNumber(r.Date.Unix()))
	case "input_size":
		ls.Push(lua.LNumber(r.InputSize))
	case "output_size":
		ls.Push(lua.LNumber(r.OutputSize))
	case "image_url_redacted":
		ls.Push(lua.LBool(r.ImageURLRedacted))
	case "size_exceeded":
		ls.Push(lua.LBool(r.SizeExceeded))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}
