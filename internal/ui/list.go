package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/gsotw/internal/models"
)

var (
	_ list.Item = submissionItem{}
	_ list.Item = archiveItem{}
	_ list.Item = resultItem{}
)

// submissionItem wraps [models.Submission] to implement [list.Item].
type submissionItem struct {
	submission *models.Submission
	owned      bool
}

func (i submissionItem) FilterValue() string { return i.submission.Track }
func (i submissionItem) Title() string {
	if i.owned {
		return i.submission.Track + " ★"
	}
	return i.submission.Track
}
func (i submissionItem) Description() string {
	return fmt.Sprintf("%s • %s • %s", i.submission.Artist, i.submission.Member, humanize.Time(i.submission.CreatedAt))
}

// archiveItem wraps [models.ArchiveEntry] to implement [list.Item].
type archiveItem struct {
	entry *models.ArchiveEntry
}

func (i archiveItem) FilterValue() string { return i.entry.Track }
func (i archiveItem) Title() string       { return fmt.Sprintf("v%d  %s", i.entry.Week, i.entry.Track) }
func (i archiveItem) Description() string {
	return fmt.Sprintf("%s • %s", i.entry.Artist, i.entry.Member)
}

// resultItem wraps [models.SearchResult] to implement [list.Item].
type resultItem struct {
	result models.SearchResult
}

func (i resultItem) FilterValue() string { return i.result.Title }
func (i resultItem) Title() string       { return i.result.Title }
func (i resultItem) Description() string {
	desc := i.result.ArtistLine()
	if i.result.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.result.Album)
	}
	return desc
}
