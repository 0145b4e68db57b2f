// Package tasks implements the submission workflow and the listing views.
//
// # Submission Workflow
//
// [Workflow] holds the shared dependencies and hands out one [Session] per visitor.
// A session carries the transient search state:
//
//  1. [Session.Search] : exchanges catalog credentials, then searches
//     - Ends in exactly one of [SearchResults], [SearchEmpty] or [SearchFailed]
//     - A newer search wins over an older one that resolves later
//
//  2. [Session.Submit] : stores the chosen result for the member and the current period
//     - A second pick in the same period reports [ConflictMessage]
//     - Success resets the search and shows a notice for [NoticeDuration]
//
//  3. [Workflow.Remove] : deletes a submission owned by the requesting member
//
// # Listing Views
//
// [Listings] reads the current queue and the archive, newest first, into a [Listing]
// with a loading, empty, ready or error state. Archive entries get their ISO week in the configured zone.
//
// # Progress Reporting
//
// Sessions can report [ProgressUpdate] values on a channel. Sends never block.
package tasks
