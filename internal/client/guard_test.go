package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHasRecursion(t *testing.T) {
	dir := t.TempDir()
	leaf := writeFile(t, dir, "leaf.txt", "show\ninfo\n")
	writeFile(t, dir, "self.txt", "show\nexecute_script "+filepath.Join(dir, "self.txt")+"\n")
	writeFile(t, dir, "a.txt", "execute_script "+filepath.Join(dir, "b.txt")+"\n")
	writeFile(t, dir, "b.txt", "info\nexecute_script "+filepath.Join(dir, "a.txt")+"\n")
	writeFile(t, dir, "twice.txt", "execute_script "+leaf+"\nexecute_script "+leaf+"\n")
	writeFile(t, dir, "dangling.txt", "execute_script "+filepath.Join(dir, "nope.txt")+"\n")

	tests := []struct {
		name string
		file string
		want bool
	}{
		{name: "plain script", file: "leaf.txt", want: false},
		{name: "runs itself", file: "self.txt", want: true},
		{name: "runs itself through another script", file: "a.txt", want: true},
		{name: "same child twice", file: "twice.txt", want: false},
		{name: "missing child", file: "dangling.txt", want: false},
		{name: "missing script", file: "missing.txt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HasRecursion(filepath.Join(dir, tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
