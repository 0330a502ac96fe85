// Command testfeed serves a synthetic hourly snapshot feed, shaped like the
// real upstream, for local development of the constellation service.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aerodrift/constellation/internal/testfeed"
)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	balloons := flag.Int("balloons", 50, "constellation size")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed (fix for reproducible runs)")
	malformed := flag.Bool("malformed", true, "damage some hours with repairable malformations")
	flag.Parse()

	opts := []testfeed.Option{
		testfeed.WithBalloons(*balloons),
		testfeed.WithSeed(*seed),
	}
	if *malformed {
		// A taste of the real feed: a few hours need the repair ladder and
		// one is a lost cause.
		opts = append(opts,
			testfeed.WithMalformedHours(3, 7, 11),
			testfeed.WithUndecodableHours(19),
		)
	}

	g := testfeed.New(opts...)
	fmt.Printf("serving %d synthetic balloons on %s (seed %d)\n", g.Balloons(), *addr, *seed)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           testfeed.Handler(g),
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		os.Stderr.WriteString("testfeed failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
