// Package session holds short-lived, per-journey state that must survive across requests
// before a certificate is fully saved: the landing overlay and the per-document error lists.
//
// Keys are namespaced by fixed prefixes. Scoped entries (user + contact + key) are field maps,
// so one landing overlay lives under one key with one field per landing id.
package session

import (
	"context"
	"strings"
)

// Key prefixes.
const (
	SummaryErrorsPrefix = "summary-errors"
	SystemErrorPrefix   = "system-error"
	LandingsPrefix      = "landings"
)

// Store is the key-value session store the pipeline depends on.
// Absent keys read as nil without error.
type Store interface {
	// ReadAllFor returns every field stored under a scoped key.
	ReadAllFor(ctx context.Context, userPrincipal, scope, key string) (map[string][]byte, error)
	// WriteAllFor sets the given fields under a scoped key, leaving other fields untouched.
	WriteAllFor(ctx context.Context, userPrincipal, scope, key string, fields map[string][]byte) error
	// Read returns the value of a plain key.
	Read(ctx context.Context, key string) ([]byte, error)
	// WriteAll replaces the value of a plain key.
	WriteAll(ctx context.Context, key string, value []byte) error
	// RemoveTag deletes a plain or scoped key.
	RemoveTag(ctx context.Context, key string) error
}

// ScopedKey builds the storage key of a scoped entry.
func ScopedKey(userPrincipal, scope, key string) string {
	return strings.Join([]string{userPrincipal, scope, key}, ":")
}

// SummaryErrorsKey is where the blocking failures of a document are kept.
func SummaryErrorsKey(documentNumber string) string {
	return SummaryErrorsPrefix + ":" + documentNumber
}

// SystemErrorKey is where the last system failure of a document is kept.
func SystemErrorKey(documentNumber string) string {
	return SystemErrorPrefix + ":" + documentNumber
}

// OverlayKey is the scoped key of a document's landing overlay.
func OverlayKey(documentNumber string) string {
	return LandingsPrefix + ":" + documentNumber
}
