// Package recipientlist implements the recipient list workflow that sits
// in front of the recipient parser.
//
// Pasted or uploaded text is parsed, stored as a named list, cached for the
// campaign composer and optionally archived in its raw form. The service
// depends only on the ports in repository.go; it never imports net/http or
// database/sql directly.
package recipientlist
