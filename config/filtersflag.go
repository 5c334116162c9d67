package config

import (
	"fmt"

	"github.com/cfexamples/routeservice/routing"
)

// filtersFlag holds the filter chain of the route. On the command line,
// it takes the arrow notation, e.g. flowId("reuse") -> cfForwardedUrl().
// In the config file, it takes either the same notation as a string, or
// a list of name/args objects.
type filtersFlag struct {
	value string
	defs  []*routing.FilterDef
}

func newFiltersFlag(value string) *filtersFlag {
	f := &filtersFlag{}
	if err := f.Set(value); err != nil {
		panic(fmt.Sprintf("invalid default filters: %v", err))
	}

	return f
}

func (f *filtersFlag) Set(value string) error {
	defs, err := routing.ParseFilters(value)
	if err != nil {
		return fmt.Errorf("failed to parse filters: %w", err)
	}

	f.value = value
	f.defs = defs
	return nil
}

func (f *filtersFlag) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var value string
	if err := unmarshal(&value); err == nil {
		return f.Set(value)
	}

	var defs []*routing.FilterDef
	if err := unmarshal(&defs); err != nil {
		return err
	}

	defs = normalizeFilterDefs(defs)
	f.value = routing.FiltersString(defs)
	f.defs = defs
	return nil
}

func (f *filtersFlag) String() string {
	if f == nil {
		return ""
	}

	return f.value
}

// normalizeFilterDefs converts the numeric arguments decoded from yaml to
// float64, the way the arrow notation parser returns them.
func normalizeFilterDefs(defs []*routing.FilterDef) []*routing.FilterDef {
	for _, d := range defs {
		for i, a := range d.Args {
			switch v := a.(type) {
			case int:
				d.Args[i] = float64(v)
			case int64:
				d.Args[i] = float64(v)
			case uint64:
				d.Args[i] = float64(v)
			}
		}
	}

	return defs
}
