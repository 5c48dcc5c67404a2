package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/tablestorm/internal/command"
	"github.com/dshills/tablestorm/internal/config"
	"github.com/dshills/tablestorm/internal/engine/buffer"
	"github.com/dshills/tablestorm/internal/table"
)

const sampleDoc = `# Notes

| Name | Age |
| ---- | --- |
| Bob  | 30  |

+------+-----+
| Key  | Val |
+======+=====+
| a    | 1   |
+------+-----+
`

func newTestSession(t *testing.T, text string, opts Options) *Session {
	t.Helper()
	buf := buffer.NewBufferFromString(text, buffer.WithoutCursor())
	s, err := NewSession(buf, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRefreshRendersTables(t *testing.T) {
	s := newTestSession(t, sampleDoc, Options{})

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 2)

	insts := s.Instances()
	require.Len(t, insts, 2)
	assert.Equal(t, table.DialectPipe, insts[0].Dialect)
	assert.Equal(t, table.DialectGrid, insts[1].Dialect)

	rng, ok := s.Range(insts[0].ID)
	require.True(t, ok)
	assert.Equal(t, buffer.LineRange{First: 2, Last: 4}, rng)
	assert.Equal(t, "#editor", insts[0].Widget.Container())

	// A second pass finds nothing new.
	res, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rendered)
}

func TestSessionEditWriteBack(t *testing.T) {
	s := newTestSession(t, sampleDoc, Options{})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	inst := s.Instances()[0]
	require.NoError(t, inst.Table.SetCell(0, 1, "31"))
	inst.Widget.Focus()
	inst.Widget.Blur()

	assert.Len(t, s.Instances(), 1)
	assert.Contains(t, s.Buffer().Text(), "| Bob  | 31  |")

	// The rewritten table is detected again on the next pass.
	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Rendered, 1)
	assert.Len(t, s.Instances(), 2)
}

func TestSessionReleaseRestoresText(t *testing.T) {
	s := newTestSession(t, sampleDoc, Options{})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Release())
	assert.Empty(t, s.Instances())
	assert.Equal(t, sampleDoc, s.Buffer().Text())
}

func TestSessionFormat(t *testing.T) {
	s := newTestSession(t, "intro\n\na|b\n-|-\n1|2\n\n| x   |\n| --- |\n| 1   |\n", Options{})

	changed, err := s.Format(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
	assert.Empty(t, s.Instances())
	assert.Equal(t, "intro\n\n| a   | b   |\n| --- | --- |\n| 1   | 2   |\n\n| x   |\n| --- |\n| 1   |\n", s.Buffer().Text())
}

func TestSessionCommands(t *testing.T) {
	buf := buffer.NewBufferFromString("intro\n\nend", buffer.WithCursor(buffer.Point{Line: 1}))
	s, err := NewSession(buf, Options{})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Execute(command.InsertTableID, nil))
	assert.Equal(t, "intro\n| | |\n| | |\n\nend", buf.Text())

	// The blank table has no delimiter row, so it stays text until filled in.
	require.NoError(t, s.Execute(RefreshCommandID, nil))
	assert.Empty(t, s.Instances())
}

func TestSessionLuaScript(t *testing.T) {
	var out bytes.Buffer
	s := newTestSession(t, sampleDoc, Options{ScriptOutput: &out})

	script := `
local rendered = tablestorm.refresh()
print("rendered", rendered)
for _, t in ipairs(tablestorm.tables()) do
	print(t.dialect, t.first, t.last)
end
tablestorm.register{id = "notes.hello", handler = function() print("hello") end}
`
	require.NoError(t, s.RunString(context.Background(), script))
	require.NoError(t, s.Execute("notes.hello", nil))

	assert.Equal(t, "rendered\t2\npipe\t2\t4\ngrid\t6\t10\nhello\n", out.String())

	cmd, ok := s.Commands().Get("notes.hello")
	require.True(t, ok)
	assert.Equal(t, ScriptSource, cmd.Source)
}

func TestSessionInitScript(t *testing.T) {
	dir := t.TempDir()
	init := filepath.Join(dir, "init.lua")
	require.NoError(t, os.WriteFile(init, []byte(`tablestorm.register{id = "init.ran", handler = function() end}`), 0o600))

	cfg := config.Default()
	cfg.Lua.Init = init
	s := newTestSession(t, "", Options{Config: cfg})

	_, ok := s.Commands().Get("init.ran")
	assert.True(t, ok)
}

func TestSessionLoadsPlugins(t *testing.T) {
	dir := t.TempDir()
	pluginDir := filepath.Join(dir, "totals")
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "plugin.json"),
		[]byte(`{"name": "totals", "version": "1.0.0", "commands": [{"id": "totals.sum", "title": "Sum"}]}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(pluginDir, "init.lua"),
		[]byte(`tablestorm.register{id = "totals.sum", title = "Sum", handler = function() end}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.lua"), []byte(`error("nope")`), 0o600))

	cfg := config.Default()
	cfg.Lua.Plugins = []string{dir}
	s := newTestSession(t, sampleDoc, Options{Config: cfg})

	require.Len(t, s.Plugins(), 1)
	assert.Equal(t, "totals", s.Plugins()[0].Name)
	_, ok := s.Commands().Get("totals.sum")
	assert.True(t, ok)
}

func TestSessionInitScriptFailure(t *testing.T) {
	cfg := config.Default()
	cfg.Lua.Init = filepath.Join(t.TempDir(), "missing.lua")

	_, err := NewSession(buffer.NewBufferFromString(""), Options{Config: cfg})
	var ie *InitError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "lua", ie.Component)
}

func TestSessionRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Detect.MaxLines = 0

	_, err := NewSession(buffer.NewBufferFromString(""), Options{Config: cfg})
	assert.ErrorIs(t, err, config.ErrValidationFailed)
}

func TestSessionApplyConfig(t *testing.T) {
	var logs bytes.Buffer
	logger := NewLogger(LoggerConfig{Output: &logs, Level: LogLevelInfo})
	s := newTestSession(t, sampleDoc, Options{Logger: logger})

	cfg := config.Default()
	cfg.Detect.Dialects = []string{"grid"}
	cfg.Render.Container = "#side"
	cfg.Log.Level = "warn"
	require.NoError(t, s.ApplyConfig(cfg))

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 1)
	assert.Equal(t, table.DialectGrid, res.Rendered[0].Dialect)
	assert.Equal(t, "#side", res.Rendered[0].Widget.Container())
	assert.Equal(t, LogLevelWarn, logger.Level())
	assert.Equal(t, []string{"grid"}, s.Config().Detect.Dialects)

	bad := config.Default()
	bad.Log.Level = "loud"
	assert.Error(t, s.ApplyConfig(bad))
}

func TestSessionWatchConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[detect]\ndialects = [\"pipe\", \"grid\"]\n"), 0o600))

	s := newTestSession(t, sampleDoc, Options{})
	require.NoError(t, s.WatchConfig(path))
	require.NoError(t, os.WriteFile(path, []byte("[detect]\ndialects = [\"grid\"]\n"), 0o600))

	require.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.pending != nil
	}, 5*time.Second, 10*time.Millisecond)

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 1)
	assert.Equal(t, table.DialectGrid, res.Rendered[0].Dialect)
}

func TestOpenAndSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.md")
	text := strings.ReplaceAll(sampleDoc, "\n", "\r\n")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))

	s, err := OpenSession(path, Options{})
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	inst := s.Instances()[0]
	require.NoError(t, inst.Table.SetHeaderCell(0, "Who"))
	inst.Widget.Focus()
	inst.Widget.Blur()

	require.NoError(t, s.Save())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "| Who | Age |\r\n")
	assert.NotContains(t, strings.ReplaceAll(string(data), "\r\n", ""), "\n")
}

func TestOpenSessionTableOnFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.md")
	require.NoError(t, os.WriteFile(path, []byte("| A | B |\n| - | - |\n| 1 | 2 |\n"), 0o600))

	s, err := OpenSession(path, Options{})
	require.NoError(t, err)
	defer s.Close()

	_, hasCursor := s.Buffer().CursorLine()
	assert.False(t, hasCursor, "a file opened from disk has no editing cursor")

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 1)
	assert.Equal(t, table.DialectPipe, res.Rendered[0].Dialect)

	rng, ok := s.Range(res.Rendered[0].ID)
	require.True(t, ok)
	assert.Equal(t, buffer.LineRange{First: 0, Last: 2}, rng)
}

func TestSessionSkipsTableUnderCursor(t *testing.T) {
	buf := buffer.NewBufferFromString(sampleDoc, buffer.WithCursor(buffer.Point{Line: 3}))
	s, err := NewSession(buf, Options{})
	require.NoError(t, err)
	defer s.Close()

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 1)
	assert.Equal(t, table.DialectGrid, res.Rendered[0].Dialect)

	// Moving the cursor off the pipe table lets the next pass render it.
	buf.SetCursor(buffer.Point{Line: 0})
	res, err = s.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Rendered, 1)
	assert.Equal(t, table.DialectPipe, res.Rendered[0].Dialect)
	assert.Len(t, s.Instances(), 2)
}

func TestSessionFrontmatterNeverRenders(t *testing.T) {
	const body = "\n| A | B |\n| - | - |\n| 1 | 2 |\n"

	tests := []struct {
		name  string
		text  string
		valid bool
	}{
		{"valid yaml", "---\ntitle: Notes\n---\n" + body, true},
		{"invalid yaml", "---\ntitle: foo: bar\n---\n" + body, false},
		{"not a mapping", "---\njust words\n---\n" + body, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, tt.text, Options{})

			res, err := s.Refresh(context.Background())
			require.NoError(t, err)
			require.Len(t, res.Rendered, 1)
			assert.Equal(t, table.DialectPipe, res.Rendered[0].Dialect)
			rng, _ := s.Range(res.Rendered[0].ID)
			assert.Equal(t, buffer.LineRange{First: 4, Last: 6}, rng)

			f, ok := s.Frontmatter()
			require.True(t, ok)
			assert.Equal(t, 2, f.Last)
			assert.Equal(t, tt.valid, f.Valid())
		})
	}
}

func TestSessionInvalidFrontmatterAlone(t *testing.T) {
	s := newTestSession(t, "---\ntitle: foo: bar\n---\n\nBody text\n", Options{})

	res, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Rendered)
	assert.Empty(t, res.Failed)
	assert.Empty(t, s.Instances())
}

func TestSessionContainerFollowsConfig(t *testing.T) {
	s := newTestSession(t, sampleDoc, Options{})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "#editor", s.Container())

	cfg := config.Default()
	cfg.Render.Container = "#side"
	require.NoError(t, s.ApplyConfig(cfg))

	assert.Equal(t, "#side", s.Container())
	for _, inst := range s.Instances() {
		assert.Equal(t, "#side", inst.Widget.Container())
	}
}

func TestSaveWithoutPath(t *testing.T) {
	s := newTestSession(t, "", Options{})
	assert.ErrorIs(t, s.Save(), ErrNoPath)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := OpenSession(filepath.Join(t.TempDir(), "nope.md"), Options{})
	var oe *OperationError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "open", oe.Op)
}

func TestSessionClose(t *testing.T) {
	s := newTestSession(t, sampleDoc, Options{})
	_, err := s.Refresh(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
	assert.ErrorIs(t, s.Execute(command.InsertTableID, nil), ErrSessionClosed)
	assert.Zero(t, s.Bindings().Count())
}
