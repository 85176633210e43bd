// Package crawler implements the sequential archive crawl: listing pagination,
// record page extraction, include/exclude filtering, and incremental
// persistence of accepted records.
package crawler
