package shell

import (
	"errors"
	"net/http"

	"github.com/cjoudrey/gluahttp"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal("gridwar_shell")
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// luaCommand wraps a shell command so that scripts can call it as
// gridwar_<name>("args"). The function returns the command's output, or
// nil and an error message.
func luaCommand(name string) lua.LGFunction {
	return func(L *lua.LState) int {
		sc := getShell(L)
		line := name
		if L.GetTop() > 0 {
			line += " " + L.ToString(1)
		}
		cmd, err := extractFields(line)
		if err == nil {
			var r *Response
			r, err = sc.dispatch(cmd)
			if err == nil {
				if r == nil {
					L.Push(lua.LString(""))
				} else {
					L.Push(lua.LString(r.message))
				}
				return 1
			}
		}
		log.Err(err).Str("cmd", name).Msg("error-executing-script-command")
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
}

// luaState returns the winner, side to move and ply count of the current
// game, or nil if there is none.
func luaState(L *lua.LState) int {
	sc := getShell(L)
	if sc.game == nil {
		L.Push(lua.LNil)
		return 1
	}
	t := L.NewTable()
	t.RawSetString("id", lua.LString(sc.gameID))
	t.RawSetString("winner", lua.LString(sc.game.Winner.String()))
	t.RawSetString("current", lua.LString(sc.game.Current.String()))
	t.RawSetString("plies", lua.LNumber(len(sc.game.History)))
	t.RawSetString("board", lua.LString(sc.game.Board.String()))
	L.Push(t)
	return 1
}

var scriptCommands = []string{"new", "set", "setboard", "play", "double", "shift",
	"bomb", "moves", "eval", "hint", "aiplay", "show", "export", "save", "load",
	"games", "analyze"}

func (sc *ShellController) script(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("need arguments for script")
	}

	filepath := cmd.args[0]

	L := lua.NewState()
	defer L.Close()

	L.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{}).Loader)
	luajson.Preload(L)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal("gridwar_shell", lsc)
	for _, name := range scriptCommands {
		L.SetGlobal("gridwar_"+name, L.NewFunction(luaCommand(name)))
	}
	L.SetGlobal("gridwar_state", L.NewFunction(luaState))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return nil, nil
}
