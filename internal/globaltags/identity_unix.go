//go:build unix

package globaltags

import (
	"fmt"
	"os"
	"syscall"
)

// FileIdentity identifies a file by device and inode number, so hard links,
// symlinks and differently spelled paths to one file share a key.
func FileIdentity(path string) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return PathIdentity(path)
	}
	return fmt.Sprintf("inode:%d:%d", st.Dev, st.Ino), nil
}
