//go:build !linux

package exitadapt

import "syscall"

func errnoString(errnum int) string {
	return syscall.Errno(errnum).Error()
}
