package routing

import (
	"fmt"
	"math"
	"strings"
)

func escape(s string, chars string) string {
	s = strings.Replace(s, "\\", "\\\\", -1)
	for i := 0; i < len(chars); i++ {
		c := chars[i : i+1]
		s = strings.Replace(s, c, "\\"+c, -1)
	}

	return s
}

func argsString(args []interface{}) string {
	var sargs []string
	for _, a := range args {
		switch v := a.(type) {
		case int:
			sargs = append(sargs, fmt.Sprintf("%d", v))
		case float64:
			f := "%g"
			if math.Floor(v) == v {
				f = "%.0f"
			}

			sargs = append(sargs, fmt.Sprintf(f, v))
		case string:
			sargs = append(sargs, fmt.Sprintf(`"%s"`, escape(v, `"`)))
		default:
			sargs = append(sargs, fmt.Sprintf(`"%s"`, escape(fmt.Sprint(v), `"`)))
		}
	}

	return strings.Join(sargs, ", ")
}

// String returns the definition in the flag form, e.g. flowId("reuse").
func (d *FilterDef) String() string {
	return fmt.Sprintf("%s(%s)", d.Name, argsString(d.Args))
}

// FiltersString returns the chain in the flag form, that can be parsed
// by ParseFilters.
func FiltersString(defs []*FilterDef) string {
	s := make([]string, len(defs))
	for i, d := range defs {
		s[i] = d.String()
	}

	return strings.Join(s, " -> ")
}
