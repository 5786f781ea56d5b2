// Package script lets a Lua file steer the session's random picks.
//
// The script may define either or both globals:
//
//	function choose(decision, color, n) -- return 1..n, or nil to roll
//	function chance(decision, color, p) -- return true/false, or nil to roll
//
// decision is one of mover, victim, square, slot, capture, to_board.
package script

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/park285/cheese-hopboard/internal/pieces"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

const (
	// CallTimeout bounds one choose or chance call; the frame loop waits on it.
	CallTimeout = 50 * time.Millisecond
	loadTimeout = time.Second
)

// base functions that reach the filesystem or compile new chunks
var blockedGlobals = []string{"dofile", "loadfile", "load", "loadstring"}

type Chooser struct {
	mu      sync.Mutex
	L       *lua.LState
	name    string
	choose  *lua.LFunction
	chance  *lua.LFunction
	timeout time.Duration
	logger  *zap.Logger
}

// Load compiles the script at path.
func Load(path string, logger *zap.Logger) (*Chooser, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read move script: %w", err)
	}
	return LoadString(path, string(src), logger)
}

// LoadString compiles src; name appears in errors.
func LoadString(name, src string, logger *zap.Logger) (*Chooser, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("open lua %s: %w", lib.name, err)
		}
	}
	for _, g := range blockedGlobals {
		L.SetGlobal(g, lua.LNil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	L.SetContext(ctx)
	err := L.DoString(src)
	L.RemoveContext()
	cancel()
	if err != nil {
		L.Close()
		return nil, fmt.Errorf("move script %s: %w", name, err)
	}
	c := &Chooser{L: L, name: name, timeout: CallTimeout, logger: logger}
	if fn, ok := L.GetGlobal("choose").(*lua.LFunction); ok {
		c.choose = fn
	}
	if fn, ok := L.GetGlobal("chance").(*lua.LFunction); ok {
		c.chance = fn
	}
	if c.choose == nil && c.chance == nil {
		L.Close()
		return nil, fmt.Errorf("move script %s defines neither choose nor chance", name)
	}
	return c, nil
}

// Choose returns a 0-based index.
func (c *Chooser) Choose(decision string, color pieces.Color, n int) (int, bool) {
	if c == nil || c.choose == nil {
		return 0, false
	}
	ret, ok := c.call(c.choose, decision, lua.LString(color.String()), lua.LNumber(n))
	if !ok {
		return 0, false
	}
	num, isNum := ret.(lua.LNumber)
	if !isNum {
		return 0, false
	}
	i := int(num) - 1
	if i < 0 || i >= n {
		c.logger.Warn("move_script_out_of_range", zap.String("decision", decision), zap.Int("index", int(num)), zap.Int("n", n))
		return 0, false
	}
	return i, true
}

func (c *Chooser) Chance(decision string, color pieces.Color, p float64) (bool, bool) {
	if c == nil || c.chance == nil {
		return false, false
	}
	ret, ok := c.call(c.chance, decision, lua.LString(color.String()), lua.LNumber(p))
	if !ok {
		return false, false
	}
	b, isBool := ret.(lua.LBool)
	if !isBool {
		return false, false
	}
	return bool(b), true
}

func (c *Chooser) call(fn *lua.LFunction, decision string, args ...lua.LValue) (lua.LValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	c.L.SetContext(ctx)
	defer c.L.RemoveContext()
	if err := c.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, append([]lua.LValue{lua.LString(decision)}, args...)...); err != nil {
		if ctx.Err() != nil {
			c.logger.Warn("move_script_timeout", zap.String("script", c.name), zap.String("decision", decision), zap.Duration("timeout", c.timeout))
			return nil, false
		}
		c.logger.Warn("move_script_error", zap.String("script", c.name), zap.String("decision", decision), zap.Error(err))
		return nil, false
	}
	ret := c.L.Get(-1)
	c.L.Pop(1)
	return ret, ret != lua.LNil
}

func (c *Chooser) Close() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.L.Close()
}
