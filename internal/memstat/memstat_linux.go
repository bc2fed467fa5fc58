//go:build linux

package memstat

import (
	"golang.org/x/sys/unix"
)

// systemFree returns free plus buffer RAM as reported by sysinfo(2).
func systemFree() (uint64, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, err
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return (uint64(info.Freeram) + uint64(info.Bufferram)) * unit, nil
}
