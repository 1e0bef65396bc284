package luahost

import (
	"errors"
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

const (
	mailcleanName       = "mailclean"
	mailcleanBeforeName = "mailclean_before"
	mailcleanAfterName  = "mailclean_after"
)

// Mailclean holds the event functions registered by a script.
type Mailclean struct {
	Before MailcleanBeforeFuncs
	After  MailcleanAfterFuncs
}

// MailcleanBeforeFuncs holds synchronous event functions.
type MailcleanBeforeFuncs struct {
	Sanitize *lua.LFunction
}

// MailcleanAfterFuncs holds asynchronous event functions.
type MailcleanAfterFuncs struct {
	ResultDeleted *lua.LFunction
	ResultStored  *lua.LFunction
}

func registerMailcleanTypes(ls *lua.LState) {
	// mailclean type.
	mt := ls.NewTypeMetatable(mailcleanName)
	ls.SetField(mt, "__index", ls.NewFunction(mailcleanIndex))

	// mailclean.before type.
	mt = ls.NewTypeMetatable(mailcleanBeforeName)
	ls.SetField(mt, "__index", ls.NewFunction(mailcleanBeforeIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailcleanBeforeNewIndex))

	// mailclean.after type.
	mt = ls.NewTypeMetatable(mailcleanAfterName)
	ls.SetField(mt, "__index", ls.NewFunction(mailcleanAfterIndex))
	ls.SetField(mt, "__newindex", ls.NewFunction(mailcleanAfterNewIndex))

	// mailclean global.
	ud := ls.NewUserData()
	ud.Value = &Mailclean{}
	ls.SetMetatable(ud, ls.GetTypeMetatable(mailcleanName))
	ls.SetGlobal(mailcleanName, ud)
}

func wrapUserData(ls *lua.LState, val any, typeName string) *lua.LUserData {
	ud := ls.NewUserData()
	ud.Value = val
	ls.SetMetatable(ud, ls.GetTypeMetatable(typeName))

	return ud
}

// getMailclean returns the functions registered in the LState.
func getMailclean(ls *lua.LState) (*Mailclean, error) {
	lv := ls.GetGlobal(mailcleanName)
	if lv == nil || lv == lua.LNil {
		return nil, errors.New("mailclean object was nil")
	}

	ud, ok := lv.(*lua.LUserData)
	if !ok {
		return nil, fmt.Errorf("mailclean object was type %s instead of UserData", lv.Type())
	}

	val, ok := ud.Value.(*Mailclean)
	if !ok {
		return nil, fmt.Errorf("mailclean object (%v) could not be cast", ud.Value)
	}

	return val, nil
}

func checkMailclean(ls *lua.LState, pos int) *Mailclean {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*Mailclean); ok {
		return val
	}
	ls.ArgError(pos, mailcleanName+" expected")
	return nil
}

func checkMailcleanBefore(ls *lua.LState, pos int) *MailcleanBeforeFuncs {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*MailcleanBeforeFuncs); ok {
		return val
	}
	ls.ArgError(pos, mailcleanBeforeName+" expected")
	return nil
}

func checkMailcleanAfter(ls *lua.LState, pos int) *MailcleanAfterFuncs {
	ud := ls.CheckUserData(pos)
	if val, ok := ud.Value.(*MailcleanAfterFuncs); ok {
		return val
	}
	ls.ArgError(pos, mailcleanAfterName+" expected")
	return nil
}

// mailclean getter.
func mailcleanIndex(ls *lua.LState) int {
	mc := checkMailclean(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "before":
		ls.Push(wrapUserData(ls, &mc.Before, mailcleanBeforeName))
	case "after":
		ls.Push(wrapUserData(ls, &mc.After, mailcleanAfterName))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}

// mailclean.before getter.
func mailcleanBeforeIndex(ls *lua.LState) int {
	before := checkMailcleanBefore(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "sanitize":
		ls.Push(funcOrNil(before.Sanitize))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}

// mailclean.before setter.
func mailcleanBeforeNewIndex(ls *lua.LState) int {
	before := checkMailcleanBefore(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "sanitize":
		before.Sanitize = ls.CheckFunction(3)
	default:
		ls.RaiseError("invalid mailclean.before index %q", index)
	}

	return 0
}

// mailclean.after getter.
func mailcleanAfterIndex(ls *lua.LState) int {
	after := checkMailcleanAfter(ls, 1)
	field := ls.CheckString(2)

	switch field {
	case "result_deleted":
		ls.Push(funcOrNil(after.ResultDeleted))
	case "result_stored":
		ls.Push(funcOrNil(after.ResultStored))
	default:
		ls.Push(lua.LNil)
	}

	return 1
}

// mailclean.after setter.
func mailcleanAfterNewIndex(ls *lua.LState) int {
	after := checkMailcleanAfter(ls, 1)
	index := ls.CheckString(2)

	switch index {
	case "result_deleted":
		after.ResultDeleted = ls.CheckFunction(3)
	case "result_stored":
		after.ResultStored = ls.CheckFunction(3)
	default:
		ls.RaiseError("invalid mailclean.after index %q", index)
	}

	return 0
}

func funcOrNil(f *lua.LFunction) lua.LValue {
	if f == nil {
		return lua.LNil
	}

	return f
}
