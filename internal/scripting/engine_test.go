package scripting

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const hooks = `
banned = { Griefer = true }

function allow_join(name, id)
  if banned[name] then
    return "You are banned from this server"
  end
  return nil
end

function status_description(online, max)
  return online .. "/" .. max .. " in limbo"
end
`

func TestAllowJoin(t *testing.T) {
	e, err := LoadString(hooks, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.Empty(t, e.AllowJoin("Notch", uuid.New()))
	assert.Equal(t, "You are banned from this server", e.AllowJoin("Griefer", uuid.New()))
}

func TestAllowJoinReceivesUUID(t *testing.T) {
	e, err := LoadString(`
function allow_join(name, id)
  return id
end`, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	id := uuid.MustParse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	assert.Equal(t, id.String(), e.AllowJoin("Notch", id))
}

func TestStatusDescription(t *testing.T) {
	e, err := LoadString(hooks, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	desc, ok := e.StatusDescription(3, 20)
	require.True(t, ok)
	assert.Equal(t, "3/20 in limbo", desc)
}

func TestMissingAndFailingHooks(t *testing.T) {
	e, err := LoadString(`
function status_description(online, max)
  error("boom")
end`, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	assert.Empty(t, e.AllowJoin("Notch", uuid.New()))
	_, ok := e.StatusDescription(0, 0)
	assert.False(t, ok)
}

func TestNilEngine(t *testing.T) {
	var e *Engine
	assert.Empty(t, e.AllowJoin("Notch", uuid.New()))
	_, ok := e.StatusDescription(0, 0)
	assert.False(t, ok)
	e.Close()
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.lua")
	require.NoError(t, os.WriteFile(path, []byte(hooks), 0o644))

	e, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()
	assert.NotEmpty(t, e.AllowJoin("Griefer", uuid.New()))

	_, err = Load(filepath.Join(t.TempDir(), "missing.lua"), zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = LoadString("this is not lua", zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestConcurrentHooks(t *testing.T) {
	e, err := LoadString(hooks, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				e.AllowJoin("Notch", uuid.New())
				e.StatusDescription(i, j)
			}
		}(i)
	}
	wg.Wait()
}
