/*
This command provides an executable version of the route service, with
the flowId and the cfForwardedUrl filters.

For the list of command line options, run:

	routeservice -help
*/
package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/cfexamples/routeservice"
	"github.com/cfexamples/routeservice/config"
)

var (
	version string
	commit  string
)

func main() {
	cfg := config.NewConfig()
	if err := cfg.Parse(); err != nil {
		log.Fatalf("Error processing config: %s", err)
	}

	if cfg.PrintVersion {
		fmt.Printf("routeservice version %s (commit: %s)\n", version, commit)
		return
	}

	if err := routeservice.Run(cfg.ToOptions()); err != nil {
		log.Fatal(err)
	}
}
