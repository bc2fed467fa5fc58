package retrolog

import (
	"sort"

	"github.com/pkg/errors"
)

// Level names used by DefaultLevels.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
	LevelFatal = "fatal"
)

// Levels maps level names to ranks. Lower ranks are more verbose. The core
// only ever looks ranks up by name and compares them.
type Levels map[string]int

// DefaultLevels returns the table used when none is configured.
//
// Returns:
//   - Levels: trace=10 debug=20 info=30 warn=40 error=50 fatal=60
func DefaultLevels() Levels {
	return Levels{
		LevelTrace: 10,
		LevelDebug: 20,
		LevelInfo:  30,
		LevelWarn:  40,
		LevelError: 50,
		LevelFatal: 60,
	}
}

// Rank returns the rank of name.
func (lv Levels) Rank(name string) (int, bool) {
	rank, ok := lv[name]
	return rank, ok
}

// Names returns every level name ordered by rank, then by name.
func (lv Levels) Names() []string {
	names := make([]string, 0, len(lv))
	for name := range lv {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := lv[names[i]], lv[names[j]]
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

// ErrorRank returns the rank at which DumpOnError fires: the rank of
// "error" if the table has it, otherwise the highest rank.
func (lv Levels) ErrorRank() int {
	if rank, ok := lv[LevelError]; ok {
		return rank
	}
	max, first := 0, true
	for _, rank := range lv {
		if first || rank > max {
			max, first = rank, false
		}
	}
	return max
}

// Validate checks that the table is usable.
func (lv Levels) Validate() error {
	if len(lv) == 0 {
		return errors.New("level table is empty")
	}
	for name := range lv {
		if name == "" {
			return errors.New("level table has an empty name")
		}
	}
	return nil
}

// clone returns an independent copy so a Logger's table cannot change
// underneath it.
func (lv Levels) clone() Levels {
	if lv == nil {
		return nil
	}
	out := make(Levels, len(lv))
	for k, v := range lv {
		out[k] = v
	}
	return out
}

func (lv Levels) rankOf(name string) (int, error) {
	rank, ok := lv[name]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownLevel, "%q", name)
	}
	return rank, nil
}
