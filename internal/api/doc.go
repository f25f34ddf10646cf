// Package api exposes the crawl task control surface over HTTP: task
// submission, status queries, stop requests, the option tables used by
// clients to build a submission, and access to the crawler's output files.
// It translates HTTP concerns to calls on the task executor and the output
// directory and maps their errors to status codes in one place.
package api
