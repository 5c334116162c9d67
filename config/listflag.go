package config

import (
	"fmt"
	"strings"
)

// listFlag is a flag.Value accepting a separated list on the command line
// and a sequence in the yaml config, optionally restricted to a set of
// allowed items.
type listFlag struct {
	sep     string
	allowed map[string]bool
	value   string
	values  []string
}

func newListFlag(sep string, allowed ...string) *listFlag {
	lf := &listFlag{
		sep:     sep,
		allowed: make(map[string]bool),
	}

	for _, a := range allowed {
		lf.allowed[a] = true
	}

	return lf
}

func commaListFlag(allowed ...string) *listFlag {
	return newListFlag(",", allowed...)
}

func (lf *listFlag) validate() error {
	if len(lf.allowed) == 0 {
		return nil
	}

	for _, v := range lf.values {
		if !lf.allowed[v] {
			return fmt.Errorf("value not allowed: %s", v)
		}
	}

	return nil
}

func (lf *listFlag) Set(value string) error {
	if lf == nil {
		return nil
	}

	if value == "" {
		lf.value = ""
		lf.values = nil
		return nil
	}

	lf.value = value
	lf.values = splitList(value, lf.sep)
	return lf.validate()
}

// splitList splits value by sep, trimming the items and skipping the
// empty ones.
func splitList(value, sep string) []string {
	var values []string
	for _, v := range strings.Split(value, sep) {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}

	return values
}

func (lf *listFlag) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var values []string
	if err := unmarshal(&values); err != nil {
		return err
	}

	lf.value = strings.Join(values, lf.sep)
	lf.values = values
	return lf.validate()
}

func (lf *listFlag) String() string {
	if lf == nil {
		return ""
	}

	return lf.value
}
