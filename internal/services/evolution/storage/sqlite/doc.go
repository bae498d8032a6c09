// Package sqlite implements the lineage storage contracts on SQLite.
//
// The backend owns the schema through embedded migrations. Appends run in
// immediate-mode transactions so the head check and insert are one atomic
// step, and the database is opened with full synchronous commits.
package sqlite
