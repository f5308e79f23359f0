// Package types defines the value types shared across the indexing and
// query pipeline: code chunks produced by the chunker, per-run index
// statistics, and the answer/reference shapes returned by the query engine.
package types
