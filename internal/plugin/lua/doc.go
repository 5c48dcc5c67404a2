// Package lua provides the scripting surface of a tablestorm session.
//
// Scripts run in a sandboxed gopher-lua state: only the base, table, string
// and math libraries are opened, file loading functions are removed and
// print writes to a configurable writer.
//
// # State
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(2 * time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile(ctx, "init.lua"); err != nil {
//	    return err
//	}
//
// # The tablestorm module
//
// Install exposes the session to scripts as the global table tablestorm:
//
//	tablestorm.register{
//	    id = "table.count",
//	    title = "Count Tables",
//	    handler = function(args)
//	        print(#tablestorm.tables())
//	    end,
//	}
//	tablestorm.insert_table()
//	local rendered, failed, pruned = tablestorm.refresh()
//	tablestorm.execute("table.count")
//
// tables() returns one entry per rendered table with the fields id,
// dialect, first, last, rows and columns. Commands registered by a script
// are tagged with the source passed to Install so they can be dropped
// together.
package lua
