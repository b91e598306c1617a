// Package errors provides the classified error primitives used across profilepub.
//
// Errors carry a category (config, validation, filesystem, publish, ...), a
// severity and structured context. A fluent builder constructs them and a CLI
// adapter turns them into user-facing messages and process exit codes.
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryPublish, "rewrite failed").
//		WithContext("tag", "latest").
//		WithContext("path", target).
//		Build()
package errors
