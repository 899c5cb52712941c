package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint is one server operation: the HTTP route that serves it and the
// `docextract api` command that calls it.
type Endpoint interface {
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler needs the pipeline built and
	// the archive opened. Such routes answer 503 until the server starts.
	RequiresInit() bool

	// Command builds the client command. getServerURL is read at run time,
	// after flags are parsed.
	Command(getServerURL func() string) *cobra.Command
}
