// Package draft holds the in-memory state of one deck-creation session:
// two-faced card drafts, the cache that numbers them, and the selection
// used for multi-delete. Nothing here is persisted.
package draft
