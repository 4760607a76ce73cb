// Package config resolves the settings of a cleanup run.
//
// [Options] carries the command-line flags. An optional YAML file
// ([LoadFile]) supplies the filter expression, the sweep and verification
// toggles and [Timeouts]. Environment variables override the file and flags
// override everything: defaults < file < env < flags. [Resolve] performs the
// merge and returns [Settings]. Any invalid input is reported as an [*Error],
// which the command layer maps to exit code 1.
package config
