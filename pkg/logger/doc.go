// Package logger provides the structured logging interface used across the harvester.
//
// It wraps zerolog with a small interface so components can take a Logger
// in their constructors and tests can swap in a TestLogger that records
// every message:
//
//	logger.Initialize(&cfg.Logging)
//	log := logger.GetLogger().WithField("component", "paginator")
//	log.InfoWithFields("Fetched page", map[string]interface{}{
//	    "status": 200,
//	    "cursor": "111",
//	})
//
// Console output is colored and written to stderr. When Logging.File is set,
// every event is also appended to that file.
//
// The Log* helpers give recurring harvest events (batches, rate limits,
// session transitions) a consistent shape.
package logger
