//go:build windows

package runner

import "golang.org/x/sys/windows"

func hostCodePage() uint32 {
	return windows.GetACP()
}
