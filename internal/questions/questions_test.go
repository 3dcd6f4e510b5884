package questions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSkills(t *testing.T) {
	assert.Equal(t, []string{"python", "react"}, ParseSkills("Python, React"))
	assert.Equal(t, []string{"go", ""}, ParseSkills(" GO ,"))
	assert.Equal(t, []string{""}, ParseSkills(""))
}

func TestBuildQueue(t *testing.T) {
	bank := DefaultBank()
	python, _ := bank.Lookup("python")
	react, _ := bank.Lookup("react")
	sql, _ := bank.Lookup("sql")

	t.Run("two skills keep input order", func(t *testing.T) {
		got := bank.BuildQueue([]string{"python", "react"})
		want := []string{python[0], python[1], react[0], react[1]}
		assert.Equal(t, want, got)
	})

	t.Run("unknown skill falls back to default", func(t *testing.T) {
		got := bank.BuildQueue([]string{"unknownlang"})
		assert.Equal(t, bank.Default(), got)
		assert.Len(t, got, 4)
	})

	t.Run("truncated to five", func(t *testing.T) {
		got := bank.BuildQueue([]string{"react", "python", "sql"})
		require.Len(t, got, MaxQueueLength)
		assert.Equal(t, []string{react[0], react[1], python[0], python[1], sql[0]}, got)
	})

	t.Run("duplicates are not removed", func(t *testing.T) {
		got := bank.BuildQueue([]string{"python", "python"})
		assert.Equal(t, []string{python[0], python[1], python[0], python[1]}, got)
	})

	t.Run("empty tokens never match", func(t *testing.T) {
		got := bank.BuildQueue(ParseSkills("python,"))
		assert.Equal(t, []string{python[0], python[1]}, got)

		got = bank.BuildQueue(ParseSkills(" , "))
		assert.Equal(t, bank.Default(), got)
	})

	t.Run("default matches like any other skill", func(t *testing.T) {
		def := bank.Default()
		got := bank.BuildQueue(ParseSkills("default, sql"))
		assert.Equal(t, []string{def[0], def[1], sql[0], sql[1]}, got)

		got = bank.BuildQueue(ParseSkills("Default"))
		assert.Equal(t, def[:2], got)
	})

	t.Run("unmatched skills are skipped", func(t *testing.T) {
		got := bank.BuildQueue([]string{"cobol", "java"})
		java, _ := bank.Lookup("java")
		assert.Equal(t, java[:2], got)
	})
}

func TestBuildQueueShortSkillList(t *testing.T) {
	bank := Bank{
		"go":       {"What is a goroutine?"},
		DefaultKey: {"fallback"},
	}
	assert.Equal(t, []string{"What is a goroutine?"}, bank.BuildQueue([]string{"go"}))
}

func TestLookup(t *testing.T) {
	bank := DefaultBank()
	qs, ok := bank.Lookup("typescript")
	require.True(t, ok)
	assert.Len(t, qs, 4)

	_, ok = bank.Lookup("TypeScript")
	assert.False(t, ok, "lookup is exact; callers lowercase")
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid bank", func(t *testing.T) {
		path := filepath.Join(dir, "bank.yaml")
		content := "Go:\n  - What is a goroutine?\n  - Explain interfaces.\ndefault:\n  - Tell me about yourself.\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		bank, err := LoadFile(path)
		require.NoError(t, err)
		qs, ok := bank.Lookup("go")
		require.True(t, ok)
		assert.Equal(t, []string{"What is a goroutine?", "Explain interfaces."}, qs)
		assert.Equal(t, []string{"Tell me about yourself."}, bank.Default())
	})

	t.Run("missing default", func(t *testing.T) {
		path := filepath.Join(dir, "nodefault.yaml")
		require.NoError(t, os.WriteFile(path, []byte("go:\n  - q\n"), 0o644))

		_, err := LoadFile(path)
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
		assert.NotEmpty(t, serr.Problems)
	})

	t.Run("empty question list", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte("go: []\ndefault:\n  - q\n"), 0o644))

		_, err := LoadFile(path)
		var serr *SchemaError
		require.ErrorAs(t, err, &serr)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}
