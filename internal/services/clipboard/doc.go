// Package clipboard implements a manual translation engine: numbered lines are
// placed on the system clipboard for an operator to run through any web
// translator, and the translated lines are read back once the clipboard
// changes.
package clipboard
