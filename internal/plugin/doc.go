// Package plugin discovers Lua plugins and loads them into a session.
//
// Plugins can be either single-file or directory-based:
//
// Single-file plugin:
//
//	~/.config/tablestorm/plugins/totals.lua
//
// Directory plugin:
//
//	~/.config/tablestorm/plugins/totals/
//	├── plugin.json   (optional manifest)
//	└── init.lua      (or plugin.lua)
//
// A manifest names the plugin and lists the commands it contributes:
//
//	{
//	    "name": "totals",
//	    "version": "1.0.0",
//	    "description": "Sum numeric columns",
//	    "main": "init.lua",
//	    "commands": [
//	        {"id": "totals.sum", "title": "Sum Column"}
//	    ]
//	}
//
// The main file runs with the tablestorm module installed. A plugin that
// declares a command must register it while loading:
//
//	tablestorm.register{
//	    id = "totals.sum",
//	    title = "Sum Column",
//	    handler = function(args) ... end,
//	}
//
// When two search paths contain a plugin with the same name, the first path
// wins.
package plugin
