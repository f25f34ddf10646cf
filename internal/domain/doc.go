// Package domain contains the crawl job configuration, the enumerations the
// control surface accepts, and the validation rules applied to a submission
// before a task is created for it. It has no knowledge of how tasks are
// executed or how the crawler is invoked.
package domain
