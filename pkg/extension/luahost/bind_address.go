package luahost

import (
	"net/mail"

	lua "github.com/yuin/gopher-lua"
)

const mailAddressName = "address"

func registerMailAddressType(ls *lua.LState) {
	mt := ls.NewTypeMetatable(mailAddressName)
	ls.SetGlobal(mailAddressName, mt)

	// Static attributes.
	ls.SetField(mt, "new", ls.NewFunction(newMailAddress))

	// Methods.
	ls.SetField(mt, "__index", ls.NewFunction(mailAddressIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailAddressNewIndex))
	ls.SetField(mt, "__tostring", ls.NewFunction(mailAddressString))
}

func newMailAddress(ls *lua.LState) int {
	val := &mail.Address{
		Name:    ls.OptString(1, ""),
		Address: ls.OptString(2, ""),
	}
	ls.Push(wrapMailAddress(ls, val))

	return 1
}

// wrapMailAddress returns nil for a nil address.
func wrapMailAddress(ls *lua.LState, val *mail.Address) lua.LValue {
	if val == nil {
		return lua.LNil
	}
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailAddressName))

	return ud
}

func checkMailAddress(ls *lua.LState, pos int) *mail.Address {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*mail.Address); ok {
		return val
	}
	ls.ArgError(pos, mailAddressName+" expected")
	return nil
}

func mailAddressIndex(ls *lua.LState) int {
	a := checkMailAddress(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "name":
		ls.Push(lua.LString(a.Name))
	case "address":
		ls.Push(lua.LString(a.Address))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}

func mailAddressNewIndex(ls *lua.LState) int {
	a := checkMailAddress(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "name":
		a.Name = ls.CheckString(3)
	case "address":
		a.Address = ls.CheckString(3)
	default:
		ls.RaiseError("invalid index %q", index)
	}

	return 0
}

func mailAddressString(ls *lua.LState) int {
	ls.Push(lua.LString(checkMailAddress(ls, 1).String()))
	return 1
}
