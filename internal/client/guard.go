package client

import (
	"bufio"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dreamware/bandstand/internal/protocol"
)

// HasRecursion reports whether running the script at path would run it
// again, directly or through the scripts it runs. Scripts that cannot be
// read locally are left for the server to judge.
func HasRecursion(path string) (bool, error) {
	return walkScripts(path, map[string]bool{})
}

// walkScripts follows execute_script lines depth first. open holds the
// scripts on the current path.
func walkScripts(path string, open map[string]bool) (bool, error) {
	abs, err := filepath.Abs(strings.TrimSpace(path))
	if err != nil {
		return false, err
	}
	if open[abs] {
		return true, nil
	}
	f, err := os.Open(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	open[abs] = true
	defer delete(open, abs)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name, rest, _ := strings.Cut(strings.TrimSpace(sc.Text()), " ")
		if name != protocol.CmdExecuteScript {
			continue
		}
		rec, err := walkScripts(rest, open)
		if err != nil || rec {
			return rec, err
		}
	}
	return false, sc.Err()
}
