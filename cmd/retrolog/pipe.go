package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/wayneeseguin/retrolog/pkg/backends"
	"github.com/wayneeseguin/retrolog/pkg/formatters"
	"github.com/wayneeseguin/retrolog/pkg/retrolog"
)

// maxLineSize bounds a single input line.
const maxLineSize = 1024 * 1024

type pipeOptions struct {
	level        string
	defaultLevel string
	dumpOnError  string
	flushOnExit  string
	everyNth     int
	maxLines     int
	maxAge       time.Duration
	format       string
	output       string
	stats        bool
}

func newPipeCmd() *cobra.Command {
	opts := &pipeOptions{}

	cmd := &cobra.Command{
		Use:   "pipe",
		Short: "Buffer log lines from stdin and write the ones that matter",
		Long: `Read log lines from stdin, detect each line's level, and hand it to retrolog.
Lines below --level are kept in memory. Lines at or above it are written to
--output. With --dump-on-error, an error line first writes every buffered
line at or above the given level, in the order they arrived.`,
		Example: `  app 2>&1 | retrolog pipe --level warn --dump-on-error debug
  app | retrolog pipe --output rotate:///var/log/app.log?max_size=50 --flush-on-exit info
  app | retrolog pipe --output nats://localhost:4222/logs.app`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipe(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.level, "level", "l", retrolog.LevelInfo, "write lines at or above this level immediately")
	flags.StringVar(&opts.defaultLevel, "default-level", retrolog.LevelInfo, "level of lines without a recognizable level")
	flags.StringVar(&opts.dumpOnError, "dump-on-error", "", "on an error line, first write buffered lines at or above this level")
	flags.StringVar(&opts.flushOnExit, "flush-on-exit", "", "at end of input, write buffered lines at or above this level")
	flags.IntVar(&opts.everyNth, "every-nth", 0, "with --flush-on-exit, write only every Nth buffered line")
	flags.IntVar(&opts.maxLines, "max-lines", 0, "most lines kept in memory (default 10000)")
	flags.DurationVar(&opts.maxAge, "max-age", 0, "drop buffered lines older than this (default 10m)")
	flags.StringVarP(&opts.format, "format", "f", "message", "output format: "+strings.Join(formatters.Names(), ", "))
	flags.StringVarP(&opts.output, "output", "o", "-", "destination: -, a file path, rotate://path or nats://host/subject")
	flags.BoolVar(&opts.stats, "stats", false, "print counters to stderr at exit")

	return cmd
}

func runPipe(ctx context.Context, in io.Reader, out, errOut io.Writer, opts *pipeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.everyNth < 0 {
		return errors.Errorf("--every-nth must not be negative, got %d", opts.everyNth)
	}
	levels := retrolog.DefaultLevels()
	for flag, level := range map[string]string{
		"--default-level": opts.defaultLevel,
		"--dump-on-error": opts.dumpOnError,
		"--flush-on-exit": opts.flushOnExit,
	} {
		if _, ok := levels.Rank(level); level != "" && !ok {
			return errors.Wrapf(retrolog.ErrUnknownLevel, "%s %q", flag, level)
		}
	}

	formatter, err := formatters.CreateFormatter(opts.format)
	if err != nil {
		return errors.Wrap(err, "--format")
	}
	sink, err := openSink(opts.output, out)
	if err != nil {
		return errors.Wrap(err, "--output")
	}
	backend := backends.NewLogger(sink, formatter)
	defer backend.Close()

	logger, err := retrolog.New(backend, loggerOptions(opts, errOut)...)
	if err != nil {
		return err
	}
	defer logger.Close()

	if err := pump(ctx, in, logger, opts.defaultLevel); err != nil {
		return err
	}
	logger.Sync()

	if opts.flushOnExit != "" {
		var pred retrolog.Predicate
		if opts.everyNth > 1 {
			pred = retrolog.OnEveryNth(logger, opts.everyNth)
		}
		if _, err := logger.WriteIf(opts.flushOnExit, pred); err != nil {
			return errors.Wrap(err, "--flush-on-exit")
		}
	}

	if opts.stats {
		if err := printStats(errOut, logger); err != nil {
			return err
		}
	}
	return errors.Wrap(backend.Flush(), "flush output")
}

func loggerOptions(opts *pipeOptions, errOut io.Writer) []retrolog.Option {
	options := []retrolog.Option{
		retrolog.WithWriteLevel(opts.level),
		retrolog.WithErrorHandler(func(e retrolog.LogError) {
			fmt.Fprintf(errOut, "retrolog: %s [%s] %v\n", e.Operation, e.Severity, e)
		}),
	}
	if opts.maxLines > 0 {
		options = append(options, retrolog.WithMaxLines(opts.maxLines))
	}
	if opts.maxAge > 0 {
		options = append(options, retrolog.WithMaxLineAge(opts.maxAge))
	}
	if opts.dumpOnError != "" {
		options = append(options, retrolog.WithCondition(retrolog.BindDumpOnError(opts.dumpOnError)))
	}
	return options
}

// pump logs every line of in until EOF or ctx is done.
func pump(ctx context.Context, in io.Reader, logger *retrolog.Logger, defaultLevel string) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if err := logger.Log(detectLevel(line, defaultLevel), line); err != nil {
			return errors.Wrap(err, "log line")
		}
	}
	return errors.Wrap(scanner.Err(), "read input")
}

type pipeStats struct {
	Buffered int               `json:"buffered"`
	Written  map[string]uint64 `json:"written"`
	Evicted  map[string]uint64 `json:"evicted"`
	Errors   uint64            `json:"errors"`
}

func printStats(w io.Writer, logger *retrolog.Logger) error {
	m := logger.Metrics()
	data, err := json.Marshal(pipeStats{
		Buffered: logger.Buffered(),
		Written:  m.LinesWritten,
		Evicted:  m.LinesEvicted,
		Errors:   m.ErrorCount,
	})
	if err != nil {
		return errors.Wrap(err, "encode stats")
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
