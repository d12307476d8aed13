// Package artifacts maps logical pipeline artifacts to file paths and checks
// their presence on disk.
//
// Resolve is a pure function: the same Descriptor always yields the same path
// and distinct descriptors never share one, which lets file presence act as
// the pipeline's only cache. FS answers the existence question and Lock keeps
// two invocations from building the same media file concurrently.
package artifacts
