//go:build !linux

package memstat

func systemFree() (uint64, error) {
	return 0, ErrUnavailable
}
