// Package internal holds id and code generation helpers shared by the
// authcore engine and its stores. Nothing here is part of the public API.
package internal
