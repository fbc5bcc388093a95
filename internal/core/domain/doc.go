// Package domain contains the core business entities and errors for docquery.
// These types are shared across services and adapters but depend on nothing
// outside the standard library.
package domain
