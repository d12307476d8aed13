// Package whisper wraps the whisper-ctranslate2 command line for speech
// transcription and speech-to-English translation.
//
// Each run writes into a private temporary directory; the SRT output is
// parsed into a captions.Track and the directory is removed. Tests inject a
// command runner with WithCommandRunner.
package whisper
