// internal/server/server.go
//
// HTTP server helper with robust timeouts.
//
//   • ReadHeaderTimeout – abort slow-loris headers (5 s)
//   • ReadTimeout       – cap request body reads (10 s)
//   • WriteTimeout      – cap total response time; must exceed the submit
//                         timeout so slow actions still get a reply
//   • IdleTimeout       – close keep-alives on idle clients (60 s)
//
// This helper centralises those defaults so cmd/formd doesn't repeat
// boilerplate.

package server

import (
	"net/http"
	"time"
)

// New constructs an *http.Server.  submitTimeout is the longest a submit
// handler may run; the write timeout leaves headroom above it.
func New(addr string, handler http.Handler, submitTimeout time.Duration) *http.Server {
	write := 15 * time.Second
	if submitTimeout+5*time.Second > write {
		write = submitTimeout + 5*time.Second
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       60 * time.Second,
	}
}
