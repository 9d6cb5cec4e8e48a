// Package satchel holds module-level metadata.
package satchel

// Version is the satchel release version.
const Version = "0.1.0"
