// Package binder decodes HTTP request bodies into Go structs.
//
// It currently supports JSON bodies with content-type enforcement, a
// size limit, and rejection of trailing data:
//
//	var req createRequest
//	if err := binder.JSON()(r, &req); err != nil {
//		// respond 400, errors.Is against binder sentinels
//	}
//
// Binding failures wrap one of the package sentinel errors so handlers
// can map them to HTTP status codes with errors.Is.
package binder
