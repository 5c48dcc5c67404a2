package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/tablestorm/internal/command"
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/manager"
)

// ModuleName is the global the session API is installed under.
const ModuleName = "tablestorm"

// Host is the session a script drives.
type Host interface {
	Commands() *command.Registry
	Refresh(ctx context.Context) (manager.Result, error)
	Instances() []*manager.Instance
	Range(id string) (buffer.LineRange, bool)
	Buffer() *buffer.Buffer
}

// module binds one State to one Host.
type module struct {
	state  *State
	host   Host
	source string
}

// Install registers the tablestorm module in s. Commands registered by
// scripts carry source so the host can drop them with
// command.Registry.UnregisterBySource.
func Install(s *State, host Host, source string) {
	m := &module{state: s, host: host, source: source}
	s.RegisterModule(ModuleName, map[string]lua.LGFunction{
		"execute":      m.execute,
		"refresh":      m.refresh,
		"tables":       m.tables,
		"register":     m.register,
		"commands":     m.commands,
		"insert_table": m.insertTable,
		"cell":         m.cell,
		"set_cell":     m.setCell,
		"set_cursor":   m.setCursor,
		"clear_cursor": m.clearCursor,
	})
}

// execute(id [, args]) runs a registered command.
func (m *module) execute(L *lua.LState) int {
	id := L.CheckString(1)
	args := argsFromTable(L.OptTable(2, nil))
	if err := m.host.Commands().Execute(id, args); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// insert_table() inserts a blank table at the cursor.
func (m *module) insertTable(L *lua.LState) int {
	if err := m.host.Commands().Execute(command.InsertTableID, nil); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// set_cursor(line [, col]) places the primary cursor. Positions are 0-based
// like the lines reported by tables(). Spans containing the cursor line are
// not rendered.
func (m *module) setCursor(L *lua.LState) int {
	line := L.CheckInt(1)
	col := L.OptInt(2, 0)
	m.host.Buffer().SetCursor(buffer.Point{Line: line, Column: col})
	return 0
}

// clear_cursor() removes the primary cursor.
func (m *module) clearCursor(L *lua.LState) int {
	m.host.Buffer().ClearCursor()
	return 0
}

// refresh() runs one detection pass and returns the rendered, failed and
// pruned counts.
func (m *module) refresh(L *lua.LState) int {
	ctx := L.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := m.host.Refresh(ctx)
	if err != nil {
		L.RaiseError("%s", err.Error())
		return 0
	}
	L.Push(lua.LNumber(len(res.Rendered)))
	L.Push(lua.LNumber(len(res.Failed)))
	L.Push(lua.LNumber(res.Pruned))
	return 3
}

// tables() lists the rendered tables. Line numbers are 0-based.
func (m *module) tables(L *lua.LState) int {
	list := L.NewTable()
	for _, inst := range m.host.Instances() {
		rng, ok := m.host.Range(inst.ID)
		if !ok {
			continue
		}
		t := L.NewTable()
		t.RawSetString("id", lua.LString(inst.ID))
		t.RawSetString("dialect", lua.LString(inst.Dialect.String()))
		t.RawSetString("first", lua.LNumber(rng.First))
		t.RawSetString("last", lua.LNumber(rng.Last))
		t.RawSetString("rows", lua.LNumber(inst.Table.Rows()))
		t.RawSetString("columns", lua.LNumber(inst.Table.Columns()))
		list.Append(t)
	}
	L.Push(list)
	return 1
}

// instance returns the rendered table with the given ID.
func (m *module) instance(L *lua.LState, id string) *manager.Instance {
	for _, inst := range m.host.Instances() {
		if inst.ID == id {
			return inst
		}
	}
	L.RaiseError("no rendered table %q", id)
	return nil
}

// cell(id, row, col) returns a cell value. Rows and columns count from 1;
// row 0 is the header.
func (m *module) cell(L *lua.LState) int {
	inst := m.instance(L, L.CheckString(1))
	row, col := L.CheckInt(2), L.CheckInt(3)

	var (
		v  string
		ok bool
	)
	if row == 0 {
		v, ok = inst.Table.HeaderCell(col - 1)
	} else {
		v, ok = inst.Table.Cell(row-1, col-1)
	}
	if !ok {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(v))
	return 1
}

// set_cell(id, row, col, value) changes a cell. Row numbering follows cell.
// The table is written back when its widget blurs or the host releases it.
func (m *module) setCell(L *lua.LState) int {
	inst := m.instance(L, L.CheckString(1))
	row, col := L.CheckInt(2), L.CheckInt(3)
	value := L.CheckString(4)

	var err error
	if row == 0 {
		err = inst.Table.SetHeaderCell(col-1, value)
	} else {
		err = inst.Table.SetCell(row-1, col-1, value)
	}
	if err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// commands() returns the sorted IDs of every registered command.
func (m *module) commands(L *lua.LState) int {
	all := m.host.Commands().All()
	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	L.Push(toLuaValue(L, ids))
	return 1
}

// register{id=, title=, description=, handler=} adds a command whose
// handler is a Lua function receiving the args table.
func (m *module) register(L *lua.LState) int {
	def := L.CheckTable(1)

	id, ok := def.RawGetString("id").(lua.LString)
	if !ok || id == "" {
		L.ArgError(1, "id must be a non-empty string")
		return 0
	}
	fn, ok := def.RawGetString("handler").(*lua.LFunction)
	if !ok {
		L.ArgError(1, "handler must be a function")
		return 0
	}

	cmd := &command.Command{
		ID:          string(id),
		Title:       lua.LVAsString(def.RawGetString("title")),
		Description: lua.LVAsString(def.RawGetString("description")),
		Source:      m.source,
		Handler:     m.handler(fn),
	}
	if cmd.Title == "" {
		cmd.Title = cmd.ID
	}
	if err := m.host.Commands().Register(cmd); err != nil {
		L.RaiseError("%s", err.Error())
	}
	return 0
}

// handler adapts a Lua function to a command handler. It calls the raw
// LState so it can run from inside a script that is executing a command.
func (m *module) handler(fn *lua.LFunction) command.Handler {
	return func(args map[string]any) error {
		if m.state.closed {
			return ErrStateClosed
		}
		L := m.state.L
		return doWithRecovery(func() error {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, toLuaValue(L, args)); err != nil {
				return fmt.Errorf("lua command: %w", err)
			}
			return nil
		})
	}
}
