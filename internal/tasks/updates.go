package tasks

// ProgressUpdate represents a progress event during a workflow operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ExchangeToken Phase = iota
	SearchCatalog
	SaveSubmission
	DeleteSubmission
	Done
)

func (p Phase) String() string {
	switch p {
	case ExchangeToken:
		return "exchange_token"
	case SearchCatalog:
		return "search_catalog"
	case SaveSubmission:
		return "save_submission"
	case DeleteSubmission:
		return "delete_submission"
	case Done:
		return "done"
	default:
		return ""
	}
}

func exchangingTokenUpdate() ProgressUpdate {
	return ProgressUpdate{Phase: ExchangeToken, Message: "Requesting catalog access token..."}
}

func searchingUpdate(track, artist string) ProgressUpdate {
	msg := "Searching for " + track
	if artist != "" {
		msg += " by " + artist
	}
	return ProgressUpdate{Phase: SearchCatalog, Message: msg + "..."}
}

func savingUpdate(track string) ProgressUpdate {
	return ProgressUpdate{Phase: SaveSubmission, Message: "Adding " + track + "..."}
}

func deletingUpdate(id string) ProgressUpdate {
	return ProgressUpdate{Phase: DeleteSubmission, Message: "Removing submission " + id + "..."}
}

func doneUpdate(message string, data any) ProgressUpdate {
	return ProgressUpdate{Phase: Done, Message: message, Data: data}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
