// Package http contains the chi HTTP handlers for the license server.
//
// Handlers are thin: they decode and validate requests, delegate to the
// service layer, and render JSON responses. Policy denials from validation
// come back as ordinary 200 decisions with a machine-readable reason code;
// only malformed requests and genuine faults produce error statuses, the
// latter as RFC 7807 problem documents.
package http
