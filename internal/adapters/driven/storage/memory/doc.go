// Package memory provides in-memory implementations of the driven
// storage ports. They are safe for concurrent use and exist primarily
// for tests and ephemeral runs.
package memory
