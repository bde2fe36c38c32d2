// Package types defines the Backend interface, the reader's entity types,
// configuration, and the typed errors shared by both storage backends and
// the service facade.
//
// Corpus entities (Book, Chapter, Verse) are immutable once migrated. The
// user-generated entities (Favorite, Annotation, HistoryEntry, Setting) are
// created and mutated through the facade for the lifetime of the store.
package types
