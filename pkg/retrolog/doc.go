// Package retrolog buffers log lines below a write level in memory and writes
// them to an existing logger only when something makes them worth keeping.
// Verbose output costs nothing until an error shows it was needed, and then
// the context leading up to the error is written in the order it happened.
//
// Retrolog is not a logger itself. It wraps a backend: any value with Debug,
// Info, Warn and Error methods taking ...interface{}, or a LevelWriter. The
// pkg/backends package provides ready-made backends over files, rotating
// files, NATS subjects and the logrus, zap, zerolog and slog loggers.
//
// Key Features:
//
//   - Lines below the write level are held in memory, bounded by count and age
//   - WriteIf promotes buffered lines on demand, oldest first
//   - Write conditions decide at intake whether a line is written
//   - DumpOnError writes the buffered context when an error is logged
//   - Child instances per request or session with their own buffers
//   - One Hub bounds the lines of every instance that shares it
//   - Optional memory backstop evicting old lines under memory pressure
//   - Diagnostic errors on a channel, never through the managed backend
//
// Basic Usage:
//
//	file, err := backends.NewFileSink("/var/log/app.log")
//	if err != nil {
//		log.Fatal(err)
//	}
//	backend := backends.NewLogger(file, formatters.NewJSONFormatter())
//
//	logger, err := retrolog.New(backend, retrolog.WithWriteLevel(retrolog.LevelWarn))
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer logger.Close()
//
//	logger.Debug("cache miss", key) // buffered
//	logger.Warn("slow query", ms)   // written
//
//	// Something went wrong: write everything buffered.
//	logger.WriteIf(retrolog.LevelTrace, nil)
//
// Dump On Error:
//
//	logger, err := retrolog.New(backend,
//		retrolog.WithWriteLevel(retrolog.LevelError),
//		retrolog.WithCondition(retrolog.BindDumpOnError(retrolog.LevelDebug)),
//	)
//
//	logger.Debug("parsed request")
//	logger.Info("calling upstream")
//	logger.Error("upstream failed") // writes all three, in order
//	logger.Sync()
//
// Children:
//
//	reqLog, err := logger.With(map[string]interface{}{"request_id": id})
//	if err != nil {
//		return err
//	}
//	reqLog.Debug("handling")
//
// Children are cached by their fields in the Hub's instance cache, so calling
// With again with the same fields returns the same child. Idle children are
// evicted after InstanceLimits.MaxAge and the least recently used one is
// evicted once InstanceLimits.MaxSize is reached. An evicted child is closed
// and its buffered lines are dropped.
//
// Sharing Limits:
//
//	hub, _ := retrolog.NewHub(retrolog.WithMaxLines(100000))
//	defer hub.Close()
//
//	api, _ := retrolog.New(apiBackend, retrolog.WithHub(hub))
//	jobs, _ := retrolog.New(jobBackend, retrolog.WithHub(hub))
//
// Every line buffered through api, jobs or their children occupies one slot
// of the same ring. When the ring is full the oldest line is dropped,
// whichever instance logged it.
//
// Error Handling:
//
// Construction errors are returned as *ConfigurationError. Failures while
// running, such as a backend write that fails or a condition that returns an
// error, never reach the caller of Info or Error. They are sent to the
// ErrorHandler and to the channel returned by Errors:
//
//	go func() {
//		for e := range logger.Errors() {
//			fmt.Fprintf(os.Stderr, "retrolog: %v\n", e)
//		}
//	}()
//
// A line whose write fails stays buffered and is retried by the next WriteIf.
//
// Environment Variables:
//
// DefaultConfig reads RETROLOG_WRITE_LEVEL, RETROLOG_MAX_LINES,
// RETROLOG_MAX_LINE_AGE and RETROLOG_MAX_INSTANCES.
package retrolog
