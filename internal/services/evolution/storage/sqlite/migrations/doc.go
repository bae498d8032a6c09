// Package migrations embeds SQL migration scripts used by the SQLite backend.
package migrations
