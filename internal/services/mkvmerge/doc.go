// Package mkvmerge adds subtitle tracks to Matroska containers by writing a
// new file with mkvmerge. It implements pipeline.Muxer.
package mkvmerge
