// Package schema provides the principal schematics for all other packages. It
// defines the resolved directory descriptors, quota and identity structures,
// the shared error taxonomy and provides implementations for handling
// (Unix-based) operating system syscalls. The package serves as a foundational
// layer for the reconciliation engine and its enforcers.
package schema
