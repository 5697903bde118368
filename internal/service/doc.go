// Package service runs the long lived parts of blastweb together.
//
// Overview
// A Service owns an HTTP server serving the web interface and a gocron
// scheduler running the Janitor. Both are started by Do (or Serve) and stop
// when the context passed to it is cancelled.
//
// The Janitor cleans what a job or a browser can leave behind:
//   - sessions idle for longer than server.session_ttl
//   - job directories (blastweb-*) older than janitor.max_age which no job
//     of this process runs in, left behind by a killed process
//
// Data flow:
//
//	Service.Serve             http.Server              gocron
//	    |                         |                       |
//	    | errgroup.Go ----------->| Serve(ln)             |
//	    | scheduler.Start --------------------------------|
//	    |                         |                       | Janitor.Run
//	 ctx.Done()                   |                       |
//	    | Shutdown(timeout) ----->|                       |
//	    | scheduler.Shutdown -----------------------------|
//
// Invariants:
//   - A running job is never interrupted by the janitor: its session is
//     kept and its directory is skipped however old it is.
//   - Serve returns nil on a graceful shutdown.
package service
