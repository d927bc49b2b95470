// Package staging implements buffered multi-file uploads held on
// local disk until the caller promotes them into a repository together, or
// abandons the whole set. A background sweeper (robfig/cron/v3, the
// aggregator binary's scheduling idiom) removes stages older than their
// configured lifetime.
package staging
