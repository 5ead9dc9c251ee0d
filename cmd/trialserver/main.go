// trialserver exposes the analysis tables as a read-only JSON API for the
// dashboard layer: derived frequencies (optionally cohort-filtered), the
// responder comparison, and the baseline cohort breakdowns. The store is
// immutable once loaded, so every endpoint is a side-effect-free projection.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
)

// Special value that is to be set using ldflags
// E.g.: go build -ldflags "-X main.builddate=`date -u +%Y-%m-%d:%H:%M:%S%Z`"
var builddate string

func main() {
	fmt.Fprintf(os.Stderr, "This trialserver binary was built at: %s\n", builddate)

	var dbPath string
	port := flag.Int("port", 9021, "Port for HTTP server")

	flag.StringVar(&dbPath, "db", "", "Path to the sqlite store produced by loadcounts.")

	flag.Parse()

	if dbPath == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	store, err := openStore(dbPath)
	if err != nil {
		log.Fatalln(err)
	}
	defer store.Close()

	global := &Global{
		Site: "Trialserver",
		log:  log.New(os.Stderr, log.Prefix(), log.Ldate|log.Ltime),
		db:   store,
	}

	global.log.Println("Launching", global.Site)
	global.log.Println("Starting HTTP server on port", *port)

	if err := http.ListenAndServe(fmt.Sprintf(`:%d`, *port), router(global)); err != nil {
		log.Fatalln(err)
	}
}
