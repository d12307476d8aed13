// Package staging decides which pipeline stages must run for a media file.
//
// The stage graph is fixed: transcription or track extraction feeds
// translation, both feed combination, and every caption artifact feeds the
// final mux. A stage whose output artifact already exists is marked
// satisfied, which makes repeated runs over the same media idempotent. The
// filesystem is the only persisted state.
package staging
