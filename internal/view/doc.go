// Package view renders the HTML pages and HTMX fragments with pongo2
// templates loaded once from a directory or an fs.FS.
package view
