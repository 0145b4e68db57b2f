package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgQueueFetched MsgKind = iota
	MsgArchiveFetched
	MsgProgressUpdate
	MsgSearchComplete
	MsgSubmitComplete
	MsgRemoveComplete
	MsgNoticeExpired
)

type searchResult struct {
	results []models.SearchResult
	err     error
}

type submitResult struct {
	submission *models.Submission
	err        error
}

// queueFetchedMsg is the constructor for [MsgQueueFetched]
func queueFetchedMsg(listing tasks.Listing[*models.Submission]) Msg {
	return Msg{kind: MsgQueueFetched, data: listing}
}

// archiveFetchedMsg is the constructor for [MsgArchiveFetched]
func archiveFetchedMsg(listing tasks.Listing[*models.ArchiveEntry]) Msg {
	return Msg{kind: MsgArchiveFetched, data: listing}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// searchCompleteMsg is the constructor for [MsgSearchComplete]
func searchCompleteMsg(results []models.SearchResult, err error) Msg {
	return Msg{kind: MsgSearchComplete, data: searchResult{results, err}}
}

// submitCompleteMsg is the constructor for [MsgSubmitComplete]
func submitCompleteMsg(s *models.Submission, err error) Msg {
	return Msg{kind: MsgSubmitComplete, data: submitResult{s, err}}
}

// removeCompleteMsg is the constructor for [MsgRemoveComplete]
func removeCompleteMsg(err error) Msg {
	return Msg{kind: MsgRemoveComplete, data: err}
}

// noticeExpiredMsg is the constructor for [MsgNoticeExpired]
func noticeExpiredMsg() Msg {
	return Msg{kind: MsgNoticeExpired}
}
