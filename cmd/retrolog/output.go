package main

import (
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/wayneeseguin/retrolog/pkg/backends"
	"github.com/wayneeseguin/retrolog/pkg/types"
)

// openSink resolves an --output value:
//
//	"" or "-"                    stdout
//	nats://host:port/subject     NATS subject
//	rotate:///path?max_size=10   size-rotated file
//	file:///path or a plain path locked append-only file
func openSink(dest string, stdout io.Writer) (types.Sink, error) {
	switch {
	case dest == "" || dest == "-":
		return backends.NewStreamSink(stdout), nil
	case strings.HasPrefix(dest, "nats://"):
		sink, err := backends.NewNATSSink(dest)
		if err != nil {
			return nil, err
		}
		return sink, nil
	case strings.HasPrefix(dest, "rotate://"):
		opts, err := parseRotateURI(dest)
		if err != nil {
			return nil, err
		}
		return backends.NewRotatingSink(opts), nil
	default:
		sink, err := backends.NewFileSink(strings.TrimPrefix(dest, "file://"))
		if err != nil {
			return nil, err
		}
		return sink, nil
	}
}

// parseRotateURI reads rotate://<path>?max_size=MB&max_backups=N&max_age=DAYS&compress=true.
func parseRotateURI(uri string) (backends.RotateOptions, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return backends.RotateOptions{}, errors.Wrap(err, "invalid rotate URI")
	}

	opts := backends.RotateOptions{Filename: u.Host + u.Path}
	if opts.Filename == "" {
		return opts, errors.Errorf("rotate URI %q has no file path", uri)
	}

	query := u.Query()
	ints := map[string]*int{
		"max_size":    &opts.MaxSizeMB,
		"max_backups": &opts.MaxBackups,
		"max_age":     &opts.MaxAgeDays,
	}
	for name, dst := range ints {
		value := query.Get(name)
		if value == "" {
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return opts, errors.Errorf("rotate URI: %s must be a non-negative integer, got %q", name, value)
		}
		*dst = n
	}
	if value := query.Get("compress"); value != "" {
		compress, err := strconv.ParseBool(value)
		if err != nil {
			return opts, errors.Wrapf(err, "rotate URI: compress")
		}
		opts.Compress = compress
	}
	opts.LocalTime, _ = strconv.ParseBool(query.Get("local_time"))
	return opts, nil
}
