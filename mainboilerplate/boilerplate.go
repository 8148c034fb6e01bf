// Package mainboilerplate contains shared boilerplate for this project's
// programs. The idea is to provide a selection of narrowly scoped methods so
// callers do not have to buy-in to an all-or-nothing approach.
package mainboilerplate

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Version and BuildDate are populated at build time via -ldflags.
var (
	Version   = "development"
	BuildDate = "unknown"
)

// DiagnosticsConfig configures pull-based application metrics.
type DiagnosticsConfig struct {
	Port string `long:"port" env:"PORT" description:"Port on which /debug/metrics and /debug/ready are served. Not served if empty"`
}

// InitDiagnosticsAndRecover enables serving of metrics on the configured
// port, if any. It also returns a closure which should be deferred, which
// recovers a panic and attempts to log a termination message.
func InitDiagnosticsAndRecover(cfg DiagnosticsConfig) func() {
	if cfg.Port != "" {
		var mux = http.NewServeMux()
		mux.HandleFunc("/debug/ready", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		mux.Handle("/debug/metrics", promhttp.Handler())

		go func() {
			var err = http.ListenAndServe(":"+cfg.Port, mux)
			log.WithFields(log.Fields{"port": cfg.Port, "err": err}).Warn("diagnostics server exited")
		}()
	}

	return func() {
		if r := recover(); r != nil {
			// Make a best effort attempt to write a termination message.
			if f, err := os.OpenFile(terminationLog, os.O_WRONLY, 0777); err == nil {
				fmt.Fprintf(f, "%+v", r)
				f.Close()
			}
			panic(r)
		}
	}
}

// Must panics if |err| is non-nil, supplying |msg| and |extra| as
// formatter and fields of the generated panic.
func Must(err error, msg string, extra ...interface{}) {
	if err == nil {
		return
	}
	var f = log.Fields{"err": err}
	for i := 0; i+1 < len(extra); i += 2 {
		f[extra[i].(string)] = extra[i+1]
	}
	log.WithFields(f).Panic(msg)
}

// terminationLog is the location to write a termination message for
// Kubernetes to retrieve.
const terminationLog = "/dev/termination-log"
