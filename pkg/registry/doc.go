// Package registry implements the Repository Registry: one built
// handler per active repository, held in a read-mostly concurrent map with
// atomic-swap reload so in-flight requests always complete against a
// consistent handler, using a concurrent map and atomic pointer swap with no
// mutex held across a suspension point.
package registry
