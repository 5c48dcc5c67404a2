package lua

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"

	"github.com/dshills/tablestorm/internal/command"
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/manager"
	"github.com/dshills/tablestorm/internal/table"
)

type fakeHost struct {
	cmds      *command.Registry
	refreshes int
	result    manager.Result
	instances []*manager.Instance
	ranges    map[string]buffer.LineRange
	buf       *buffer.Buffer
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		cmds:   command.NewRegistry(),
		ranges: make(map[string]buffer.LineRange),
		buf:    buffer.NewBuffer(buffer.WithoutCursor()),
	}
}

func (h *fakeHost) Buffer() *buffer.Buffer { return h.buf }

func (h *fakeHost) Commands() *command.Registry { return h.cmds }

func (h *fakeHost) Refresh(context.Context) (manager.Result, error) {
	h.refreshes++
	return h.result, nil
}

func (h *fakeHost) Instances() []*manager.Instance { return h.instances }

func (h *fakeHost) Range(id string) (buffer.LineRange, bool) {
	rng, ok := h.ranges[id]
	return rng, ok
}

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	s, err := NewState(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestDoString(t *testing.T) {
	s := newTestState(t)

	require.NoError(t, s.DoString(context.Background(), `x = 1 + 1`))
	assert.Equal(t, glua.LNumber(2), s.GetGlobal("x"))

	assert.Error(t, s.DoString(context.Background(), `invalid lua code !!!`))
}

func TestSandboxRemovesLoaders(t *testing.T) {
	s := newTestState(t)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "io", "os", "debug"} {
		assert.Equal(t, glua.LNil, s.GetGlobal(name), name)
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		assert.NotEqual(t, glua.LNil, s.GetGlobal(name), name)
	}
}

func TestPrintOutput(t *testing.T) {
	var out bytes.Buffer
	s := newTestState(t, WithOutput(&out))

	require.NoError(t, s.DoString(context.Background(), `print("a", 1, true)`))
	assert.Equal(t, "a\t1\ttrue\n", out.String())
}

func TestExecutionTimeout(t *testing.T) {
	s := newTestState(t, WithExecutionTimeout(50*time.Millisecond))

	err := s.DoString(context.Background(), `while true do end`)
	assert.True(t, errors.Is(err, ErrExecutionTimeout), "error = %v", err)
}

func TestCall(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.DoString(context.Background(), `function add(a, b) return a + b, "ok" end`))

	results, err := s.Call(context.Background(), "add", glua.LNumber(2), glua.LNumber(3))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, glua.LNumber(5), results[0])
	assert.Equal(t, glua.LString("ok"), results[1])

	_, err = s.Call(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFunction)
}

func TestDoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "init.lua")
	require.NoError(t, os.WriteFile(path, []byte(`loaded = "yes"`), 0o600))

	s := newTestState(t)
	require.NoError(t, s.DoFile(context.Background(), path))
	assert.Equal(t, glua.LString("yes"), s.GetGlobal("loaded"))
}

func TestClosedState(t *testing.T) {
	s, err := NewState()
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.True(t, s.IsClosed())
	assert.ErrorIs(t, s.DoString(context.Background(), `x = 1`), ErrStateClosed)
	assert.Equal(t, glua.LNil, s.GetGlobal("x"))
}

func TestRegisterAndExecute(t *testing.T) {
	host := newFakeHost()
	s := newTestState(t)
	Install(s, host, "lua:test")

	script := `
calls = 0
tablestorm.register{
	id = "demo.count",
	title = "Count",
	handler = function(args)
		calls = calls + (args.step or 1)
	end,
}
tablestorm.execute("demo.count")
tablestorm.execute("demo.count", {step = 5})
`
	require.NoError(t, s.DoString(context.Background(), script))
	assert.Equal(t, glua.LNumber(6), s.GetGlobal("calls"))

	cmd, ok := host.cmds.Get("demo.count")
	require.True(t, ok)
	assert.Equal(t, "lua:test", cmd.Source)
	assert.Equal(t, "Count", cmd.Title)

	// Commands registered by a script are callable from Go.
	require.NoError(t, host.cmds.Execute("demo.count", map[string]any{"step": 10}))
	assert.Equal(t, glua.LNumber(16), s.GetGlobal("calls"))

	assert.Equal(t, 1, host.cmds.UnregisterBySource("lua:test"))
}

func TestRegisterRejectsBadDefinition(t *testing.T) {
	s := newTestState(t)
	Install(s, newFakeHost(), "lua:test")

	assert.Error(t, s.DoString(context.Background(), `tablestorm.register{title = "x", handler = function() end}`))
	assert.Error(t, s.DoString(context.Background(), `tablestorm.register{id = "x"}`))
}

func TestHandlerErrorPropagates(t *testing.T) {
	host := newFakeHost()
	s := newTestState(t)
	Install(s, host, "lua:test")

	require.NoError(t, s.DoString(context.Background(),
		`tablestorm.register{id = "boom", handler = function() error("bad table") end}`))

	err := host.cmds.Execute("boom", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad table")
}

func TestExecuteUnknownCommand(t *testing.T) {
	s := newTestState(t)
	Install(s, newFakeHost(), "lua:test")

	err := s.DoString(context.Background(), `tablestorm.execute("nope")`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not found")
}

func TestInsertTable(t *testing.T) {
	host := newFakeHost()
	buf := buffer.NewBufferFromString("intro\n\nend", buffer.WithCursor(buffer.Point{Line: 1}))
	require.NoError(t, host.cmds.Register(command.NewInsertTable(buf)))

	s := newTestState(t)
	Install(s, host, "lua:test")

	require.NoError(t, s.DoString(context.Background(), `tablestorm.insert_table()`))
	assert.Equal(t, "intro\n| | |\n| | |\n\nend", buf.Text())
}

func TestSetCursorThenInsert(t *testing.T) {
	host := newFakeHost()
	host.buf = buffer.NewBufferFromString("intro\n\nend", buffer.WithoutCursor())
	require.NoError(t, host.cmds.Register(command.NewInsertTable(host.buf)))

	s := newTestState(t)
	Install(s, host, "lua:test")

	err := s.DoString(context.Background(), `tablestorm.insert_table()`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), command.ErrNoCursor.Error())

	require.NoError(t, s.DoString(context.Background(), `tablestorm.set_cursor(1)`))
	line, ok := host.buf.CursorLine()
	require.True(t, ok)
	assert.Equal(t, 1, line)

	require.NoError(t, s.DoString(context.Background(), `tablestorm.insert_table()`))
	assert.Equal(t, "intro\n| | |\n| | |\n\nend", host.buf.Text())

	require.NoError(t, s.DoString(context.Background(), `tablestorm.clear_cursor()`))
	_, ok = host.buf.CursorLine()
	assert.False(t, ok)
}

func TestRefresh(t *testing.T) {
	host := newFakeHost()
	host.result = manager.Result{
		Rendered: make([]*manager.Instance, 2),
		Failed:   make([]*manager.ConstructionError, 1),
		Pruned:   3,
	}
	s := newTestState(t)
	Install(s, host, "lua:test")

	require.NoError(t, s.DoString(context.Background(), `r, f, p = tablestorm.refresh()`))
	assert.Equal(t, 1, host.refreshes)
	assert.Equal(t, glua.LNumber(2), s.GetGlobal("r"))
	assert.Equal(t, glua.LNumber(1), s.GetGlobal("f"))
	assert.Equal(t, glua.LNumber(3), s.GetGlobal("p"))
}

func TestTables(t *testing.T) {
	tbl, err := table.Parse("| A | B |\n| - | - |\n| 1 | 2 |\n| 3 | 4 |\n", table.DialectPipe)
	require.NoError(t, err)

	host := newFakeHost()
	host.instances = []*manager.Instance{
		{ID: "live", Dialect: table.DialectPipe, Table: tbl},
		{ID: "gone", Dialect: table.DialectPipe, Table: tbl},
	}
	host.ranges["live"] = buffer.LineRange{First: 4, Last: 7}

	s := newTestState(t)
	Install(s, host, "lua:test")

	script := `
local list = tablestorm.tables()
n = #list
id, dialect, first, last = list[1].id, list[1].dialect, list[1].first, list[1].last
rows, columns = list[1].rows, list[1].columns
`
	require.NoError(t, s.DoString(context.Background(), script))
	assert.Equal(t, glua.LNumber(1), s.GetGlobal("n"))
	assert.Equal(t, glua.LString("live"), s.GetGlobal("id"))
	assert.Equal(t, glua.LString("pipe"), s.GetGlobal("dialect"))
	assert.Equal(t, glua.LNumber(4), s.GetGlobal("first"))
	assert.Equal(t, glua.LNumber(7), s.GetGlobal("last"))
	assert.Equal(t, glua.LNumber(2), s.GetGlobal("rows"))
	assert.Equal(t, glua.LNumber(2), s.GetGlobal("columns"))
}

func TestCellAccess(t *testing.T) {
	tbl, err := table.Parse("| A | B |\n| - | - |\n| 1 | 2 |\n", table.DialectPipe)
	require.NoError(t, err)

	host := newFakeHost()
	host.instances = []*manager.Instance{{ID: "t1", Dialect: table.DialectPipe, Table: tbl}}

	s := newTestState(t)
	Install(s, host, "lua:test")

	script := `
head = tablestorm.cell("t1", 0, 2)
body = tablestorm.cell("t1", 1, 1)
missing = tablestorm.cell("t1", 5, 1)
tablestorm.set_cell("t1", 1, 2, "two")
tablestorm.set_cell("t1", 0, 1, "Alpha")
`
	require.NoError(t, s.DoString(context.Background(), script))
	assert.Equal(t, glua.LString("B"), s.GetGlobal("head"))
	assert.Equal(t, glua.LString("1"), s.GetGlobal("body"))
	assert.Equal(t, glua.LNil, s.GetGlobal("missing"))

	v, _ := tbl.Cell(0, 1)
	assert.Equal(t, "two", v)
	h, _ := tbl.HeaderCell(0)
	assert.Equal(t, "Alpha", h)
	assert.True(t, tbl.Modified())

	assert.Error(t, s.DoString(context.Background(), `tablestorm.set_cell("t1", 9, 1, "x")`))
	assert.Error(t, s.DoString(context.Background(), `tablestorm.cell("nope", 1, 1)`))
}

func TestCommandsList(t *testing.T) {
	host := newFakeHost()
	require.NoError(t, host.cmds.Register(&command.Command{ID: "b.two", Title: "Two", Handler: func(map[string]any) error { return nil }}))
	require.NoError(t, host.cmds.Register(&command.Command{ID: "a.one", Title: "One", Handler: func(map[string]any) error { return nil }}))

	s := newTestState(t)
	Install(s, host, "lua:test")

	require.NoError(t, s.DoString(context.Background(), `ids = table.concat(tablestorm.commands(), ",")`))
	assert.Equal(t, glua.LString("a.one,b.two"), s.GetGlobal("ids"))
}

func TestToGoValue(t *testing.T) {
	s := newTestState(t)
	require.NoError(t, s.DoString(context.Background(), `
arr = {1, "two", true}
map = {name = "x", size = 2.5}
`))

	assert.Equal(t, []any{int64(1), "two", true}, toGoValue(s.GetGlobal("arr")))
	assert.Equal(t, map[string]any{"name": "x", "size": 2.5}, toGoValue(s.GetGlobal("map")))
	assert.Nil(t, toGoValue(glua.LNil))
}
