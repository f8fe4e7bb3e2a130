//go:build !unix && !windows

package reconcile

func isCrossDevice(error) bool {
	return false
}
