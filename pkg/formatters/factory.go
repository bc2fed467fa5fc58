package formatters

import (
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/pkg/types"
)

// ErrUnknownFormatter is returned for a name CreateFormatter does not know.
var ErrUnknownFormatter = errors.New("unknown formatter")

var constructors = map[string]func() types.Formatter{
	"json":    func() types.Formatter { return NewJSONFormatter() },
	"message": func() types.Formatter { return NewMessageFormatter() },
	"text":    func() types.Formatter { return NewTextFormatter() },
}

// CreateFormatter returns a new formatter by name. The CLI resolves its
// --format flag through it.
func CreateFormatter(name string) (types.Formatter, error) {
	constructor, ok := constructors[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownFormatter, "%q (want one of %s)", name, strings.Join(Names(), ", "))
	}
	return constructor(), nil
}

// Names returns the sorted formatter names.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
