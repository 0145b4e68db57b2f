// package formatter renders queue, archive and search data as plain text, Markdown, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/shared"
)

// Format is an output format accepted by the CLI.
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
)

// ParseFormat accepts text, markdown (or md), csv and json, ignoring case. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// row is the common shape of submissions and archive entries.
type row struct {
	id, track, artist, member, period, image, url string
	createdAt                                     time.Time
	week                                          int
}

func submissionRows(subs []*models.Submission) []row {
	rows := make([]row, 0, len(subs))
	for _, s := range subs {
		rows = append(rows, row{s.ID, s.Track, s.Artist, s.Member, s.Period, s.ImageURL, s.ExternalURL, s.CreatedAt, 0})
	}
	return rows
}

func archiveRows(entries []*models.ArchiveEntry) []row {
	rows := make([]row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, row{e.ID, e.Track, e.Artist, e.Member, e.Period, e.ImageURL, e.ExternalURL, e.CreatedAt, e.Week})
	}
	return rows
}

// Queue renders the current submissions. now anchors relative times in text output.
func Queue(subs []*models.Submission, f Format, now time.Time) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(subs, true)
	case CSV:
		return toCSV(submissionRows(subs), false)
	case Markdown:
		return toMarkdown("Nästa utlottning", submissionRows(subs), false), nil
	default:
		return toText("Queue", submissionRows(subs), false, now), nil
	}
}

// Archive renders archive entries with their week numbers.
func Archive(entries []*models.ArchiveEntry, f Format, now time.Time) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(entries, true)
	case CSV:
		return toCSV(archiveRows(entries), true)
	case Markdown:
		return toMarkdown("Arkiv", archiveRows(entries), true), nil
	default:
		return toText("Archive", archiveRows(entries), true, now), nil
	}
}

// Results renders catalog search results.
func Results(results []models.SearchResult, f Format) ([]byte, error) {
	switch f {
	case JSON:
		return shared.MarshalJSON(results, true)
	case CSV:
		var buf bytes.Buffer
		writer := csv.NewWriter(&buf)
		if err := writer.Write([]string{"ID", "Title", "Artists", "Album", "Cover", "URL"}); err != nil {
			return nil, fmt.Errorf("failed to write CSV headers: %w", err)
		}
		for _, r := range results {
			if err := writer.Write([]string{r.ID, r.Title, r.ArtistLine(), r.Album, r.CoverURL(), r.ExternalURL}); err != nil {
				return nil, fmt.Errorf("failed to write CSV record: %w", err)
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, fmt.Errorf("CSV writer error: %w", err)
		}
		return buf.Bytes(), nil
	case Markdown:
		var buf bytes.Buffer
		buf.WriteString("## Results\n\n")
		for i, r := range results {
			fmt.Fprintf(&buf, "%d. [%s](%s) - %s\n", i+1, r.Title, r.ExternalURL, r.ArtistLine())
		}
		return buf.Bytes(), nil
	default:
		var buf bytes.Buffer
		for i, r := range results {
			fmt.Fprintf(&buf, "%d. %s - %s", i+1, r.ArtistLine(), r.Title)
			if r.Album != "" {
				fmt.Fprintf(&buf, " (%s)", r.Album)
			}
			fmt.Fprintf(&buf, " [%s]\n", r.ID)
		}
		return buf.Bytes(), nil
	}
}

func toCSV(rows []row, withWeek bool) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Track", "Artist", "Member", "Period", "Image", "URL", "CreatedAt"}
	if withWeek {
		headers = append(headers, "Week")
	}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range rows {
		record := []string{r.id, r.track, r.artist, r.member, r.period, r.image, r.url, r.createdAt.UTC().Format(time.RFC3339)}
		if withWeek {
			record = append(record, strconv.Itoa(r.week))
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

func toMarkdown(title string, rows []row, withWeek bool) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title)
	fmt.Fprintf(&buf, "**Songs**: %d\n\n", len(rows))

	for i, r := range rows {
		prefix := fmt.Sprintf("%d.", i+1)
		if withWeek {
			prefix = fmt.Sprintf("- **v%d**", r.week)
		}
		track := r.track
		if r.url != "" {
			track = fmt.Sprintf("[%s](%s)", r.track, r.url)
		}
		fmt.Fprintf(&buf, "%s %s - %s (%s)\n", prefix, r.artist, track, r.member)
	}

	return buf.Bytes()
}

func toText(title string, rows []row, withWeek bool, now time.Time) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s: %d\n\n", title, len(rows))
	for i, r := range rows {
		if withWeek {
			fmt.Fprintf(&buf, "v%-3d %s - %s (%s)\n", r.week, r.artist, r.track, r.member)
			continue
		}
		fmt.Fprintf(&buf, "%d. %s - %s (%s, %s) [%s]\n", i+1, r.artist, r.track, r.member, humanize.RelTime(r.createdAt, now, "ago", "from now"), r.id)
	}

	return buf.Bytes()
}

// WriteFile writes data to path, or to stdout when path is empty or "-".
func WriteFile(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
