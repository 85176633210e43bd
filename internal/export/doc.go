// Package export renders scraped records into their downstream formats: a
// tabular metadata dataframe (CSV and XLSX) and a text corpus (ZIP of one
// file per record plus a manifest CSV).
package export
