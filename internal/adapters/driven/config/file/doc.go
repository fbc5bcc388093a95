// Package file provides file-based configuration persistence.
package file
