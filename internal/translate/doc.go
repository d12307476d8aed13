// Package translate turns batch text translation engines into caption track
// translators and memoises their results in a SQLite cache.
package translate
