package routing

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFilters(t *testing.T) {
	for _, tt := range []struct {
		title  string
		code   string
		expect []*FilterDef
		err    bool
	}{{
		title: "empty",
		code:  "",
	}, {
		title: "whitespace",
		code:  " \n\t ",
	}, {
		title:  "single filter without args",
		code:   "cfForwardedUrl()",
		expect: []*FilterDef{{Name: "cfForwardedUrl"}},
	}, {
		title: "default chain",
		code:  `flowId("reuse") -> cfForwardedUrl()`,
		expect: []*FilterDef{
			{Name: "flowId", Args: []interface{}{"reuse"}},
			{Name: "cfForwardedUrl"},
		},
	}, {
		title: "numbers and backticks",
		code:  "flowId(`reuse`, 32) -> foo(3.14, \"a \\\"quoted\\\" b\")",
		expect: []*FilterDef{
			{Name: "flowId", Args: []interface{}{"reuse", 32.0}},
			{Name: "foo", Args: []interface{}{3.14, `a "quoted" b`}},
		},
	}, {
		title: "no whitespace",
		code:  `a()->b()->c_2()`,
		expect: []*FilterDef{
			{Name: "a"},
			{Name: "b"},
			{Name: "c_2"},
		},
	}, {
		title: "missing arrow",
		code:  "a() b()",
		err:   true,
	}, {
		title: "trailing arrow",
		code:  "a() ->",
		err:   true,
	}, {
		title: "missing parens",
		code:  "cfForwardedUrl",
		err:   true,
	}, {
		title: "unclosed parens",
		code:  `flowId("reuse"`,
		err:   true,
	}, {
		title: "unterminated string",
		code:  `flowId("reuse)`,
		err:   true,
	}, {
		title: "missing comma",
		code:  `flowId("reuse" 32)`,
		err:   true,
	}, {
		title: "empty argument",
		code:  `flowId("reuse",)`,
		err:   true,
	}, {
		title: "symbol argument",
		code:  `flowId(reuse)`,
		err:   true,
	}, {
		title: "incomplete number",
		code:  `flowId(3.)`,
		err:   true,
	}, {
		title: "invalid character",
		code:  `flowId() -> #`,
		err:   true,
	}} {
		t.Run(tt.title, func(t *testing.T) {
			defs, err := ParseFilters(tt.code)
			if tt.err {
				if err == nil {
					t.Fatal("failed to fail")
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if d := cmp.Diff(tt.expect, defs); d != "" {
				t.Errorf("unexpected filters: %s", d)
			}
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseFilters(`flowId("reuse") cfForwardedUrl()`)
	if !errors.Is(err, errUnexpectedToken) {
		t.Fatalf("unexpected error: %v", err)
	}

	const expected = "parse failed after token cfForwardedUrl, position 30: unexpected token"
	if err.Error() != expected {
		t.Errorf("unexpected error message: %q, expected: %q", err.Error(), expected)
	}
}

func TestFiltersStringRoundtrip(t *testing.T) {
	for _, code := range []string{
		`flowId("reuse") -> cfForwardedUrl()`,
		`foo(1, 0.5, "with \"quotes\"", "back\\slash")`,
		``,
	} {
		t.Run(code, func(t *testing.T) {
			defs, err := ParseFilters(code)
			if err != nil {
				t.Fatal(err)
			}

			if s := FiltersString(defs); s != code {
				t.Errorf("unexpected string: %s, expected: %s", s, code)
			}
		})
	}
}
