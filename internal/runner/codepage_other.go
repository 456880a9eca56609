//go:build !windows

package runner

func hostCodePage() uint32 {
	return 65001
}
