// Package azure implements a text translation engine on the Azure Translator
// v3 REST API. Requests are batched within the service limits and throttled
// with a token bucket.
package azure
