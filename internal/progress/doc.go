// Package progress reports scrape milestones (run start, listing pages,
// record outcomes, completion) to pluggable sinks such as structured logs and
// Prometheus collectors.
package progress
