// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI mirrors the web flows for one member:
//  1. [QueueView] : This week's submissions, with removal of the member's own row
//  2. [SearchView] : Track and artist inputs
//  3. [ResultsView] : Catalog results to pick from
//  4. [ConfirmView] : Confirm the submit
//  5. [ArchiveView] : Past picks with their ISO week
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Search progress flows through a channel from the workflow session, providing non-blocking status reporting.
// The submit confirmation is read back from the session, so it disappears on the same five second timer as on the web.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
