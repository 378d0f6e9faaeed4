package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runVersion(t *testing.T, args ...string) string {
	t.Helper()
	old := version
	version = "1.4.0-test"
	t.Cleanup(func() {
		version = old
		versionShort = false
		rootCmd.SetArgs(nil)
	})

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs(append([]string{"version"}, args...))
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCmd_PrintsBuildInfo(t *testing.T) {
	out := runVersion(t)

	assert.Contains(t, out, "newsdesk 1.4.0-test\n")
	assert.Contains(t, out, "go:       "+runtime.Version())
	assert.Contains(t, out, "platform: "+runtime.GOOS+"/"+runtime.GOARCH)
}

func TestVersionCmd_Short(t *testing.T) {
	assert.Equal(t, "1.4.0-test\n", runVersion(t, "--short"))
}

func TestVersionCmd_RejectsArgs(t *testing.T) {
	rootCmd.SetOut(new(bytes.Buffer))
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetArgs([]string{"version", "extra"})
	defer rootCmd.SetArgs(nil)

	assert.Error(t, rootCmd.Execute())
}
