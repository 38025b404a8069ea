// Package helper contains test doubles and fixtures shared by the tests of this module:
// spies for the observability interfaces, an in-memory trace store and builders for traces and events.
package helper
