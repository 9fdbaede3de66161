// Package api serves the HTMX front end: full pages, HTML fragments for the
// to-do list and its write operations, static assets and the metrics
// endpoint.
package api
