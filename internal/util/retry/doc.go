// Package retry provides bounded retry for transient control-plane conflicts.
//
// The [Do] function retries an operation with a fixed delay for a configurable
// number of attempts. Errors wrapped with [Fatal] stop the loop immediately;
// running out of attempts yields an [ExhaustedError] carrying the last error.
package retry
