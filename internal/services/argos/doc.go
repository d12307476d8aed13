// Package argos implements a text translation engine on top of an Argos
// Translate pipe process: a command that reads one JSON-encoded string per
// line on stdin and answers with one JSON-encoded translation per line.
//
// Multi-speaker cues ("-Hi. -Hello.") are split at their dashes so each
// speaker's line is translated on its own.
package argos
