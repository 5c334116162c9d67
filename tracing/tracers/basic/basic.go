// Package basic provides an in-process tracer on basictracer-go. The
// sampled spans are kept in memory and periodically written to the debug
// log, which makes it useful for local setups and tests, but not for
// production.
package basic

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	basic "github.com/opentracing/basictracer-go"
	opentracing "github.com/opentracing/opentracing-go"
	log "github.com/sirupsen/logrus"
)

const defaultFlushInterval = time.Second

type CloseableTracer interface {
	opentracing.Tracer
	Close()
}

type basicTracer struct {
	opentracing.Tracer
	recorder *basic.InMemorySpanRecorder
	quit     chan struct{}
	once     sync.Once
}

// InitTracer creates the tracer. Options are key=value pairs:
// drop-all-logs, sample-modulo, max-logs-per-span and flush-interval.
func InitTracer(opts []string) (CloseableTracer, error) {
	log.Warn("the basic tracer is not meant for production use")
	var (
		dropAllLogs    bool
		sampleModulo   uint64 = 1
		maxLogsPerSpan        = 0
		flushInterval         = defaultFlushInterval
		err            error
	)

	for _, o := range opts {
		k, v, _ := strings.Cut(o, "=")
		switch k {
		case "drop-all-logs":
			dropAllLogs = true

		case "sample-modulo":
			if v == "" {
				return nil, missingArg(k)
			}
			sampleModulo, err = strconv.ParseUint(v, 10, 64)
			if err != nil {
				return nil, invalidArg(k, err)
			}
			if sampleModulo == 0 {
				return nil, invalidArg(k, fmt.Errorf("must be positive"))
			}

		case "max-logs-per-span":
			if v == "" {
				return nil, missingArg(k)
			}
			maxLogsPerSpan, err = strconv.Atoi(v)
			if err != nil {
				return nil, invalidArg(k, err)
			}

		case "flush-interval":
			if v == "" {
				return nil, missingArg(k)
			}
			flushInterval, err = time.ParseDuration(v)
			if err != nil {
				return nil, invalidArg(k, err)
			}

		default:
			return nil, fmt.Errorf("unknown option: %s", k)
		}
	}

	recorder := basic.NewInMemoryRecorder()
	bt := &basicTracer{
		Tracer: basic.NewWithOptions(basic.Options{
			DropAllLogs:    dropAllLogs,
			ShouldSample:   func(traceID uint64) bool { return traceID%sampleModulo == 0 },
			MaxLogsPerSpan: maxLogsPerSpan,
			Recorder:       recorder,
		}),
		recorder: recorder,
		quit:     make(chan struct{}),
	}

	go bt.flush(flushInterval)
	return bt, nil
}

func (bt *basicTracer) flush(d time.Duration) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			spans := bt.recorder.GetSampledSpans()
			bt.recorder.Reset()
			for _, span := range spans {
				log.Debugf("sampled span: %s %v %v", span.Operation, span.Duration, span.Tags)
			}
		case <-bt.quit:
			return
		}
	}
}

func missingArg(opt string) error {
	return fmt.Errorf("missing argument for %s option", opt)
}

func invalidArg(opt string, err error) error {
	return fmt.Errorf("invalid argument for %s option: %w", opt, err)
}

func (bt *basicTracer) Close() {
	bt.once.Do(func() {
		close(bt.quit)
	})
}
