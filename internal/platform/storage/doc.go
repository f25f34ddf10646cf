// Package storage opens the databases a crawl can write its records to.
//
// Two targets are stateful: the embedded SQLite file ("sqlite") and an
// external PostgreSQL database ("db"). Opening either one connects, pings
// and applies the embedded goose migrations, so the crawler finds its tables
// in place; the returned Store is closed once the task ends. The file
// targets ("json", "csv") need nothing opened and are rejected here.
package storage
