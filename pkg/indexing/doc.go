// Package indexing implements the Indexing Pipeline: parsing
// uploaded POM and package.json manifests, classifying release type from
// the version string, and reconciling the result into the catalog. The
// parsers return their errors; Pipeline.Index swallows and logs its own,
// so indexing never fails an upload after the bytes are already durable
// in storage.
package indexing
