// Package pipeline defines the product lifecycle statuses, the review
// actions, and the fixed transition table between them. It is pure policy
// with no I/O so every caller consults the same rules.
package pipeline
