// Package server runs the HTTP listener of the warden daemon.
//
// The server wraps a handler (normally the health and metrics mux) in the
// request middleware chain and manages its lifecycle:
//
//	srv := server.New(&cfg.Server, mux)
//	if err := srv.Listen(); err != nil {
//	    return err
//	}
//	go srv.Serve()
//	...
//	srv.Shutdown(context.Background())
//
// Middleware, outermost first: panic recovery, request IDs (X-Request-ID),
// request logging.
package server
