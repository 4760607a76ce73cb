// Package async provides utilities for parallel task execution with
// error collection.
//
// [RunParallel] executes independent operations concurrently, waits for all
// of them and aggregates their errors. It is used for the startup probes of
// optional cloud services.
package async
