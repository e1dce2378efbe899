// Package stock implements the aggregation engine: batch runs that fetch
// remote record sets, reconcile stock quantities across warehouses and
// combination parts, and apply the results to the local entity store.
//
// A run is single-threaded and synchronous: one fetch (with a bounded
// retry on the transport timeout signature), one reconciliation pass over
// rows held in memory, one apply pass, one finish pass.
package stock
