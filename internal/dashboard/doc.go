// Package dashboard coordinates task queries and mutations for a view.
//
// A Coordinator owns the view parameters (page, search text), derives the
// cache key from them, serves fresh cached pages without network calls and
// invalidates every cached page after a successful mutation. Presentation
// code reads View snapshots and calls intent methods; it never talks to the
// gateway directly.
package dashboard
