package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/gsotw/internal/models"
	"github.com/desertthunder/gsotw/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QueueView ViewState = iota
	SearchView
	ResultsView
	ConfirmView
	ArchiveView
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	session  *tasks.Session
	listings *tasks.Listings
	member   models.Member
	width    int
	height   int

	queueList   list.Model
	archiveList list.Model
	resultList  list.Model
	trackInput  textinput.Model
	artistInput textinput.Model

	queue    tasks.Listing[*models.Submission]
	selected *models.SearchResult
	busy     bool

	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	status       string // last error or result line shown under the current view
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model for member. Progress from session is routed to the model.
func NewModel(ctx context.Context, session *tasks.Session, listings *tasks.Listings, member models.Member) *Model {
	track := textinput.New()
	track.Placeholder = "Låt"
	track.CharLimit = 200
	track.Focus()

	artist := textinput.New()
	artist.Placeholder = "Artist"
	artist.CharLimit = 200

	progress := make(chan tasks.ProgressUpdate, 16)
	session.SetProgress(progress)

	h := help.New()
	h.Styles.ShortDesc = styles.help

	return &Model{
		ctx:          ctx,
		view:         QueueView,
		session:      session,
		listings:     listings,
		member:       member,
		queueList:    newList("Nästa utlottning"),
		archiveList:  newList("Arkiv"),
		resultList:   newList("Resultat"),
		trackInput:   track,
		artistInput:  artist,
		progressChan: progress,
		help:         h,
		keys:         newKeyMap(),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	return l
}

// Init loads the queue and starts listening for progress updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchQueue(), m.waitForProgress(), textinput.Blink)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		for _, l := range []*list.Model{&m.queueList, &m.archiveList, &m.resultList} {
			l.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QueueView:
			return m.handleQueueKeys(msg)
		case SearchView:
			return m.handleSearchKeys(msg)
		case ResultsView:
			return m.handleResultKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ArchiveView:
			return m.handleArchiveKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgQueueFetched:
		m.queue = msg.data.(tasks.Listing[*models.Submission])
		items := make([]list.Item, len(m.queue.Items))
		for i, s := range m.queue.Items {
			items[i] = submissionItem{submission: s, owned: s.OwnedBy(m.member)}
		}
		return m, m.queueList.SetItems(items)

	case MsgArchiveFetched:
		listing := msg.data.(tasks.Listing[*models.ArchiveEntry])
		if listing.State == tasks.ListError {
			m.status = listing.Error
		}
		items := make([]list.Item, len(listing.Items))
		for i, e := range listing.Items {
			items[i] = archiveItem{entry: e}
		}
		return m, m.archiveList.SetItems(items)

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgSearchComplete:
		m.busy = false
		res := msg.data.(searchResult)
		state := m.session.State()
		if res.err != nil || len(res.results) == 0 {
			m.status = state.Error
			return m, nil
		}
		m.status = ""
		items := make([]list.Item, len(res.results))
		for i, r := range res.results {
			items[i] = resultItem{result: r}
		}
		m.view = ResultsView
		return m, m.resultList.SetItems(items)

	case MsgSubmitComplete:
		m.busy = false
		res := msg.data.(submitResult)
		if res.err != nil {
			m.status = tasks.Message(res.err)
			m.view = ResultsView
			return m, nil
		}
		m.status = ""
		m.selected = nil
		m.trackInput.Reset()
		m.artistInput.Reset()
		m.view = QueueView
		return m, tea.Batch(m.fetchQueue(), tea.Tick(tasks.NoticeDuration, func(_ time.Time) tea.Msg { return noticeExpiredMsg() }))

	case MsgRemoveComplete:
		m.busy = false
		if err, _ := msg.data.(error); err != nil {
			m.status = tasks.Message(err)
			return m, nil
		}
		m.status = ""
		return m, m.fetchQueue()

	case MsgNoticeExpired:
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case QueueView:
		body = m.renderQueue()
	case SearchView:
		body = m.renderSearch()
	case ResultsView:
		body = m.renderResults()
	case ConfirmView:
		body = m.renderConfirm()
	case ArchiveView:
		body = m.renderArchive()
	}

	var b strings.Builder
	b.WriteString(body)
	if m.busy && m.progress.Message != "" {
		b.WriteString("\n" + styles.warn.Render(m.progress.Message))
	}
	if m.status != "" {
		b.WriteString("\n" + styles.err.Render(m.status))
	}
	return b.String()
}

func (m *Model) handleQueueKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.add):
		m.status = ""
		m.view = SearchView
		m.artistInput.Blur()
		return m, m.trackInput.Focus()
	case key.Matches(msg, m.keys.archive):
		m.status = ""
		m.view = ArchiveView
		return m, m.fetchArchive()
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchQueue()
	case key.Matches(msg, m.keys.remove):
		item, ok := m.queueList.SelectedItem().(submissionItem)
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.removeSubmission(item.submission.ID)
	}

	var cmd tea.Cmd
	m.queueList, cmd = m.queueList.Update(msg)
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = QueueView
		return m, nil
	case "tab", "shift+tab":
		if m.trackInput.Focused() {
			m.trackInput.Blur()
			return m, m.artistInput.Focus()
		}
		m.artistInput.Blur()
		return m, m.trackInput.Focus()
	case "enter":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = ""
		return m, m.search(m.trackInput.Value(), m.artistInput.Value())
	}

	var cmd tea.Cmd
	if m.trackInput.Focused() {
		m.trackInput, cmd = m.trackInput.Update(msg)
	} else {
		m.artistInput, cmd = m.artistInput.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.status = ""
		m.view = SearchView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		item, ok := m.resultList.SelectedItem().(resultItem)
		if !ok {
			return m, nil
		}
		m.selected = &item.result
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = ResultsView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		if m.selected == nil || m.busy {
			return m, nil
		}
		m.busy = true
		return m, m.submit(*m.selected)
	}
	return m, nil
}

func (m *Model) handleArchiveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.status = ""
		m.view = QueueView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchArchive()
	}

	var cmd tea.Cmd
	m.archiveList, cmd = m.archiveList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case QueueView:
		m.queueList, cmd = m.queueList.Update(msg)
	case ResultsView:
		m.resultList, cmd = m.resultList.Update(msg)
	case ArchiveView:
		m.archiveList, cmd = m.archiveList.Update(msg)
	case SearchView:
		var c1, c2 tea.Cmd
		m.trackInput, c1 = m.trackInput.Update(msg)
		m.artistInput, c2 = m.artistInput.Update(msg)
		cmd = tea.Batch(c1, c2)
	}
	return m, cmd
}

func (m *Model) fetchQueue() tea.Cmd {
	return func() tea.Msg {
		return queueFetchedMsg(m.listings.ListCurrent(m.ctx))
	}
}

func (m *Model) fetchArchive() tea.Cmd {
	return func() tea.Msg {
		return archiveFetchedMsg(m.listings.ListArchive(m.ctx))
	}
}

func (m *Model) search(track, artist string) tea.Cmd {
	return func() tea.Msg {
		results, err := m.session.Search(m.ctx, track, artist)
		return searchCompleteMsg(results, err)
	}
}

func (m *Model) submit(result models.SearchResult) tea.Cmd {
	return func() tea.Msg {
		sub, err := m.session.Submit(m.ctx, result, m.member)
		return submitCompleteMsg(sub, err)
	}
}

func (m *Model) removeSubmission(id string) tea.Cmd {
	return func() tea.Msg {
		return removeCompleteMsg(m.session.Remove(m.ctx, id, m.member))
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) renderQueue() string {
	var b strings.Builder
	if notice := m.session.State().Notice; notice != "" {
		b.WriteString(styles.ok.Render("✓ "+notice) + "\n\n")
	}

	switch m.queue.State {
	case tasks.ListError:
		b.WriteString(styles.err.Render(m.queue.Error) + "\n")
	case tasks.ListEmpty:
		b.WriteString(styles.title.Render("Nästa utlottning") + "\nInga låtar ännu.\n")
	default:
		b.WriteString(m.queueList.View())
	}

	helpKeys := []key.Binding{m.keys.add, m.keys.remove, m.keys.archive, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", b.String(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderSearch() string {
	title := styles.title.Render("Lägg till låt")
	searchKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search"))
	helpKeys := []key.Binding{searchKey, m.keys.next, m.keys.back}
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", title, m.trackInput.View(), m.artistInput.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderResults() string {
	submitKey := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "choose"))
	helpKeys := []key.Binding{submitKey, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.resultList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	if m.selected == nil {
		return ""
	}
	title := styles.title.Render(fmt.Sprintf("Lägg till '%s'?", m.selected.Title))
	info := fmt.Sprintf("\nArtist: %s\n", m.selected.ArtistLine())
	if m.selected.Album != "" {
		info += fmt.Sprintf("Album: %s\n", m.selected.Album)
	}
	info += fmt.Sprintf("Som: %s\n", m.member.Name())

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderArchive() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.refresh, m.keys.quit}
	if len(m.archiveList.Items()) == 0 {
		return fmt.Sprintf("%s\nArkivet är tomt.\n\n%s", styles.title.Render("Arkiv"), m.help.ShortHelpView(helpKeys))
	}
	return fmt.Sprintf("%s\n\n%s", m.archiveList.View(), m.help.ShortHelpView(helpKeys))
}
