// Package crawler runs the external media crawler as a child process, one
// process per task.
//
// The crawl configuration is translated into command line flags. The child
// runs in its own process group so that a stop request can interrupt the
// whole tree (browser included) and a later Close can kill whatever is left.
package crawler
