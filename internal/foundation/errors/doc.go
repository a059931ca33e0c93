// Package errors provides the classified error primitives used across docsnip.
//
// A ClassifiedError carries a broad category (config, validation, filesystem,
// render, ...) and a severity. The CLI adapter maps categories to process exit
// codes so that the host build can distinguish "your snippets are broken" from
// "your configuration is broken".
//
// Example usage:
//
//	err := errors.NewError(errors.CategoryRender, "snippet errors in strict mode").
//		WithContext("errors", count).
//		Build()
package errors
