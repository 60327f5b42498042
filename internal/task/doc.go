// Package task runs scheduled background maintenance. Today that is the
// card expiration sweep, which applies the same EXPIRED self-heal the
// card service performs on read, in bulk, on a cron schedule.
package task
