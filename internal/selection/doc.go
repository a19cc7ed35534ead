// Package selection tracks which product SKUs a review session has picked.
// A Model is owned by exactly one session and is never shared, so it carries
// no locking of its own.
package selection
