// Package domain contains the core entities of the image batch pipeline:
// submitted rows, remote tasks, tracking rows and per-row results. It has
// no dependency on any transport or storage package.
package domain
