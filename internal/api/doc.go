// Package api is the HTTP surface of the deck service. It decodes and
// validates requests, calls the selection, deck, sync, and settings
// services, and maps their errors to status codes with sanitized messages.
package api
