// Package retention removes old parse records.
//
// A Pruner applies two limits in order: records parsed more than Days days
// ago are deleted, then the oldest records are deleted until at most
// MaxRecords remain. Either limit is disabled by setting it to zero.
// Start runs the pruner on a standard five-field cron expression
// (github.com/robfig/cron/v3), for example "0 3 * * *" for daily at 3 AM.
package retention
