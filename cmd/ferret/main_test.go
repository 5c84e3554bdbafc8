package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) string {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func TestCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	conf := filepath.Join(t.TempDir(), "ferret.yml")
	require.NoError(t, os.WriteFile(conf, []byte("analyzer: whitespace\nmax_buffered_docs: 2\n"), 0644))

	out := run(t, "red fox\nbrown fox\nred hen\n", "--config", conf, "index", dir)
	assert.Contains(t, out, "added 3 documents")

	out = run(t, "", "--config", conf, "terms", dir, "content")
	assert.Equal(t, []string{"brown  1", "fox    2", "hen    1", "red    2"}, lines(out))

	out = run(t, "", "--config", conf, "docs", "--positions", dir, "content", "fox")
	assert.Equal(t, []string{"0\t1\t[1]", "1\t1\t[1]"}, lines(out))

	out = run(t, "", "--config", conf, "delete", dir, "content", "hen")
	assert.Contains(t, out, "deleted 1 documents")

	out = run(t, "", "--config", conf, "optimize", dir)
	assert.Contains(t, out, "merged into 1")

	out = run(t, "", "check", dir)
	assert.Contains(t, out, "1 segments OK")

	// a single segment now, so the listing ends on the segment's own cursor
	out = run(t, "", "terms", dir, "content")
	assert.Equal(t, []string{"brown  1", "fox    2", "red    1"}, lines(out))
	out = run(t, "", "terms", "--from", "c", "--limit", "1", dir, "content")
	assert.Equal(t, []string{"fox  2"}, lines(out))
	out = run(t, "", "terms", "--from", "s", dir, "content")
	assert.Empty(t, out)

	out = run(t, "", "show", dir, "1")
	assert.Contains(t, out, "brown fox")
}

func TestUnknownField(t *testing.T) {
	dir := t.TempDir()
	run(t, "one\n", "index", dir)

	cmd := newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"terms", dir, "nosuchfield"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content")
}

func TestDefaultLogLevel(t *testing.T) {
	t.Cleanup(func() { setupLogging("WARNING") })
	run(t, "", "index", t.TempDir())
	assert.Equal(t, logging.INFO, logging.GetLevel("index"))
	assert.False(t, logging.MustGetLogger("index").IsEnabledFor(logging.DEBUG))

	run(t, "", "--log-level", "DEBUG", "index", t.TempDir())
	assert.Equal(t, logging.DEBUG, logging.GetLevel("index"))
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}
