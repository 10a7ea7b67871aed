//go:build linux

package exitadapt

import "golang.org/x/sys/unix"

// errnoString resolves errnum through the platform table, e.g.
// "ENOENT: no such file or directory".
func errnoString(errnum int) string {
	e := unix.Errno(errnum)
	if name := unix.ErrnoName(e); name != "" {
		return name + ": " + e.Error()
	}
	return e.Error()
}
