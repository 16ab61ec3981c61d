// Package context holds typed accessors for request scoped values.
package context

type contextKey string
