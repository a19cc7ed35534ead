// Package consolidation runs the batch jobs that merge scraped payloads and
// operator input into a normalized product record. Batches are persisted in
// the catalog, processed by a polling worker, and report progress through
// the progress hub.
package consolidation
