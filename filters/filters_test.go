package filters_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cfexamples/routeservice/filters"
	"github.com/cfexamples/routeservice/filters/filtertest"
)

func TestRegister(t *testing.T) {
	r := make(filters.Registry)
	spec := &filtertest.Filter{FilterName: "testFilter"}
	r.Register(spec)

	assert.Same(t, spec, r["testFilter"])
	assert.Nil(t, r["other"])
}

func TestRegisterOverrides(t *testing.T) {
	r := make(filters.Registry)
	r.Register(&filtertest.Filter{FilterName: "testFilter", Args: []interface{}{"a"}})
	second := &filtertest.Filter{FilterName: "testFilter"}
	r.Register(second)

	assert.Len(t, r, 1)
	assert.Same(t, second, r["testFilter"])
}
