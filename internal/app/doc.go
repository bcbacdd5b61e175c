// Package app is the application layer. Service is the only component that
// talks to several ports at once: the document repositories, the config cache,
// the blob store and the event publisher.
package app
