package scripting

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Hook names a script may define. Both are optional.
const (
	hookAllowJoin         = "allow_join"
	hookStatusDescription = "status_description"
)

// Engine wraps a single gopher-lua VM. Connections call hooks from many
// goroutines, so every VM access holds mu.
//
// A nil *Engine is valid and behaves as if no hooks were defined.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// Load creates a Lua engine and runs the script at path.
func Load(path string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoFile(path); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	log.Info("Loaded lua script", zap.String("file", path),
		zap.Bool(hookAllowJoin, e.defined(hookAllowJoin)),
		zap.Bool(hookStatusDescription, e.defined(hookStatusDescription)))
	return e, nil
}

// LoadString creates a Lua engine from source text.
func LoadString(src string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.vm.DoString(src); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	return &Engine{vm: vm, log: log}
}

func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

func (e *Engine) defined(hook string) bool {
	return e.vm.GetGlobal(hook).Type() == lua.LTFunction
}

// call runs hook with args and returns its single result. ok is false
// when the hook is missing or raised an error.
func (e *Engine) call(hook string, args ...lua.LValue) (ret lua.LValue, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, false
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", hook), zap.Error(err))
		return lua.LNil, false
	}
	ret = e.vm.Get(-1)
	e.vm.Pop(1)
	return ret, true
}

// AllowJoin asks the allow_join(name, uuid) hook whether a player may
// join. A non-empty string result is the disconnect reason; nil, false or
// an empty string admit the player. Hook errors admit the player.
func (e *Engine) AllowJoin(name string, id uuid.UUID) string {
	if e == nil {
		return ""
	}
	ret, ok := e.call(hookAllowJoin, lua.LString(name), lua.LString(id.String()))
	if !ok {
		return ""
	}
	if s, isStr := ret.(lua.LString); isStr {
		return string(s)
	}
	return ""
}

// StatusDescription asks the status_description(online, max) hook for the
// server list description. ok is false when the hook is missing, failed or
// returned something other than a string.
func (e *Engine) StatusDescription(online, max int) (string, bool) {
	if e == nil {
		return "", false
	}
	ret, ok := e.call(hookStatusDescription, lua.LNumber(online), lua.LNumber(max))
	if !ok {
		return "", false
	}
	s, isStr := ret.(lua.LString)
	if !isStr {
		return "", false
	}
	return string(s), true
}
