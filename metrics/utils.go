package metrics

import (
	"strings"

	metrics "github.com/rcrowley/go-metrics"
)

const unknownMethod = "_unknownmethod_"

var (
	hostKeyReplacer = strings.NewReplacer(".", "_", ":", "__")

	measuredMethods = map[string]bool{
		"OPTIONS": true,
		"GET":     true,
		"HEAD":    true,
		"POST":    true,
		"PUT":     true,
		"PATCH":   true,
		"DELETE":  true,
		"TRACE":   true,
		"CONNECT": true,
	}
)

// sampleFactory returns the constructor of the histogram samples used by
// the CodaHale timers.
func sampleFactory(o Options) func() metrics.Sample {
	if o.UseExpDecaySample {
		return func() metrics.Sample {
			return metrics.NewExpDecaySample(defaultExpDecayReservoirSize, defaultExpDecayAlpha)
		}
	}

	return func() metrics.Sample {
		return metrics.NewUniformSample(defaultUniformReservoirSize)
	}
}

func createTimer(sample metrics.Sample) metrics.Timer {
	return metrics.NewCustomTimer(metrics.NewHistogram(sample), metrics.NewMeter())
}

// hostForKey makes a destination host usable as a single segment of the
// dot separated metric keys.
func hostForKey(h string) string {
	return hostKeyReplacer.Replace(h)
}

// measuredMethod limits the method domain of the metrics to the standard
// methods, since the method comes from the client.
func measuredMethod(m string) string {
	if measuredMethods[m] {
		return m
	}

	return unknownMethod
}

func applyCompatibilityDefaults(o Options) Options {
	if o.DisableCompatibilityDefaults {
		return o
	}

	o.EnableAllFiltersMetrics = true
	o.EnableRouteResponseMetrics = true
	o.EnableRouteBackendErrorsCounters = true
	o.EnableRouteStreamingErrorsCounters = true
	o.EnableRouteBackendMetrics = true

	return o
}
