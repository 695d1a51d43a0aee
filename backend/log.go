package backend

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	log15adapter "github.com/jackc/pgx-log15"
	"github.com/jackc/pgx/v5/tracelog"
	log "gopkg.in/inconshreveable/log15.v2"
)

func NewLogger(conf LogConfig) (log.Logger, error) {
	level := conf.Level
	if level == "" {
		level = "warn"
	}

	logger := log.New()
	err := setFilterHandler(level, logger, log.StdoutHandler)
	if err != nil {
		return nil, err
	}

	return logger, nil
}

func setFilterHandler(level string, logger log.Logger, handler log.Handler) error {
	if level == "none" {
		logger.SetHandler(log.DiscardHandler())
		return nil
	}

	lvl, err := log.LvlFromString(level)
	if err != nil {
		return fmt.Errorf("bad log level: %w", err)
	}
	logger.SetHandler(log.LvlFilterHandler(lvl, handler))

	return nil
}

// newTracer returns a pgx query tracer that logs to logger at level. An empty level disables query logging.
func newTracer(level string, logger log.Logger) (*tracelog.TraceLog, error) {
	if level == "" {
		return nil, nil
	}

	lvl, err := tracelog.LogLevelFromString(level)
	if err != nil {
		return nil, fmt.Errorf("bad pgx log level: %w", err)
	}

	return &tracelog.TraceLog{Logger: log15adapter.NewLogger(logger), LogLevel: lvl}, nil
}

func requestLogger(logger log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, req)
			logger.Info("request",
				"method", req.Method,
				"path", req.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"requestID", middleware.GetReqID(req.Context()),
			)
		})
	}
}
