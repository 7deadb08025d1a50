// msppweb serves the QC plotting API: DIA-NN protein-group matrix and mzML
// uploads in, rendered PNG charts and summary statistics out.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/proteomisc/proteomisc/cache"
	"github.com/proteomisc/proteomisc/diann"
	"github.com/proteomisc/proteomisc/mzml"
)

var global *Global

func main() {
	errs := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		os.Kill,
		syscall.SIGTERM,
		syscall.SIGUSR1,
	)

	var port int
	var maxUploadMB int64
	flag.IntVar(&port, "port", 9019, "Port for HTTP server")
	flag.Int64Var(&maxUploadMB, "max-upload-mb", 512, "Upload size held in memory before spilling to temporary files, in MB")
	flag.Parse()

	global = &Global{
		Site:           "msppweb",
		log:            log.New(os.Stderr, log.Prefix(), log.Ldate|log.Ltime),
		MaxUploadBytes: maxUploadMB << 20,
		tables:         cache.NewStore[*diann.Table](),
		runs:           cache.NewStore[*mzml.Run](),
	}

	global.log.Println("Launching", global.Site)

	go func() {
		global.log.Println("Starting HTTP server on port", port)
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, port), router(global)); err != nil {
			errs <- err
			global.log.Println(err)
			sig <- syscall.SIGTERM
			return
		}
	}()

Outer:
	for {
		select {
		case sigl := <-sig:

			if sigl == syscall.SIGUSR1 {
				SigStatus()
				continue
			}

			// By default, exit
			global.log.Printf("\nExit: %s\n", sigl.String())

			break Outer

		case err := <-errs:
			if err == nil {
				global.log.Println("Finished")
				break Outer
			}

			// Return a status code indicating failure
			global.log.Println("Exiting due to error", err)
			os.Exit(1)
		}
	}
}

func SigStatus() {
	global.log.Println("There are", runtime.NumGoroutine(), "goroutines running")
	global.log.Println(global.tables.Len(), "cached tables,", global.runs.Len(), "cached mzML runs")
}
