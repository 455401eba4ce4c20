// Package productjson edits the application's product.json: a JSON object
// whose top-level keys are overwritten by patch documents and written back
// with tab indentation.
//
// Merging is shallow. A patch replaces whole top-level values, nested
// objects included; keys absent from the patch are left untouched.
package productjson
