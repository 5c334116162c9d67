package filtertest

import "time"

type voidMetrics struct{}

func (voidMetrics) MeasureSince(string, time.Time)    {}
func (voidMetrics) IncCounter(string)                 {}
func (voidMetrics) IncCounterBy(string, int64)        {}
func (voidMetrics) IncFloatCounterBy(string, float64) {}
