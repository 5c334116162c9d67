package routing_test

import (
	"fmt"
	"log"

	"github.com/cfexamples/routeservice/routing"
)

func ExampleParseFilters() {
	defs, err := routing.ParseFilters(`flowId("reuse", 24) -> cfForwardedUrl()`)
	if err != nil {
		log.Fatal(err)
	}

	for _, d := range defs {
		fmt.Println(d.Name, d.Args)
	}

	fmt.Println(routing.FiltersString(defs))

	// Output:
	// flowId [reuse 24]
	// cfForwardedUrl []
	// flowId("reuse", 24) -> cfForwardedUrl()
}
