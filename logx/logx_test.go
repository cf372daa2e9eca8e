package logx

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStdLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelWarning, &buf)

	l.Debugf("tag", "debug %d", 1)
	l.Infof("tag", "info %d", 2)
	assert.Empty(t, buf.String())

	l.Warnf("tag", "warn %d", 3)
	assert.Contains(t, buf.String(), "[WARNING] tag: warn 3")

	buf.Reset()
	l.Errorf("tag", "err %d", 4)
	assert.Contains(t, buf.String(), "[ERROR] tag: err 4")
}

func TestStdLoggerAllowsAllAtDebug(t *testing.T) {
	var buf bytes.Buffer
	l := New(LevelDebug, &buf)
	l.Debugf("mod", "hello")
	l.Infof("mod", "world")
	lines := strings.Count(buf.String(), "\n")
	assert.Equal(t, 2, lines)
}

func TestNullLoggerDiscardsEverything(t *testing.T) {
	assert.NotPanics(t, func() {
		Null.Debugf("t", "x")
		Null.Infof("t", "x")
		Null.Warnf("t", "x")
		Null.Errorf("t", "x")
	})
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "SILENT", LevelSilent.String())
}
