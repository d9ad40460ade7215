package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasktimer/internal/core"
	"github.com/valter-silva-au/tasktimer/pkg/models"
)

// maxInboxLines caps the notifications shown in the watch view.
const maxInboxLines = 5

// watchFeedPage is the number of change events read per Since call.
const watchFeedPage = 200

type watchModel struct {
	actor    core.Actor
	username string
	inbox    *core.Inbox
	width    int
	height   int

	// Data.
	tasks    []models.Task
	session  *models.TimerSession
	unread   []models.Notification
	head     int64
	now      time.Time
	selected int

	// State.
	loading bool
	err     error
	status  string
}

// watchLoadedMsg carries a fresh read of tasks, session and inbox.
type watchLoadedMsg struct {
	tasks   []models.Task
	session *models.TimerSession
	unread  []models.Notification
	head    int64
	err     error
}

// tickMsg redraws the running timer once per second.
type tickMsg time.Time

// pollMsg asks for the change feed position.
type pollMsg struct{}

// headMsg reports the change feed position.
type headMsg struct {
	head int64
	err  error
}

// actionDoneMsg reports the outcome of a key-triggered transition.
type actionDoneMsg struct {
	status string
	err    error
}

func newWatchModel(user *models.User) watchModel {
	return watchModel{
		actor:    core.Actor{UserID: user.ID, Role: user.Role},
		username: user.Username,
		inbox:    core.NewInbox(user.ID, Notifications, Events).WithLogger(Logger),
		now:      Clock.Now(),
		loading:  true,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.load(true), tickEverySecond(), pollFeed())
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(m.tasks)-1 {
				m.selected++
			}
			return m, nil
		case "r":
			m.loading = true
			return m, m.load(true)
		case "s":
			return m, m.act(core.EventStart)
		case "p":
			return m, m.act(core.EventPause)
		case "c":
			return m, m.act(core.EventComplete)
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickEverySecond()

	case pollMsg:
		return m, checkHead()

	case headMsg:
		next := pollFeed()
		if msg.err == nil && msg.head != m.head {
			return m, tea.Batch(m.load(false), next)
		}
		return m, next

	case actionDoneMsg:
		m.status = msg.status
		m.err = msg.err
		return m, m.load(false)

	case watchLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.tasks = msg.tasks
		m.session = msg.session
		m.unread = msg.unread
		m.head = msg.head
		if m.selected >= len(m.tasks) {
			m.selected = len(m.tasks) - 1
		}
		if m.selected < 0 {
			m.selected = 0
		}
		return m, nil
	}

	return m, nil
}

func (m watchModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(fmt.Sprintf(" tt watch: %s ", m.username))
	help := helpStyle.Render("up/down: select | s: start | p: pause | c: complete | r: refresh | q: quit")

	if m.loading && m.tasks == nil {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	width := m.width - 6
	if width < 20 {
		width = 20
	}
	body := lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Width(width).Render(m.renderTimer()),
		panelStyle.Width(width).Render(m.renderTasks()),
		panelStyle.Width(width).Render(m.renderInbox()),
	)

	footer := help
	switch {
	case m.err != nil:
		footer = errorStyle.Render(m.err.Error()) + "\n" + help
	case m.status != "":
		footer = m.status + "\n" + help
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, footer)
}

func (m watchModel) renderTimer() string {
	if m.session == nil {
		return helpStyle.Render("No timer running.")
	}
	for i := range m.tasks {
		if m.tasks[i].ID == m.session.TaskID {
			elapsed := core.ElapsedSeconds(&m.tasks[i], m.session, m.now)
			return fmt.Sprintf("%s  %s  %s", m.tasks[i].ID, timerStyle.Render(core.FormatDuration(elapsed)), m.tasks[i].Title)
		}
	}
	return fmt.Sprintf("Timing %s", m.session.TaskID)
}

func (m watchModel) renderTasks() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	if len(m.tasks) == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	for i := range m.tasks {
		task := &m.tasks[i]
		elapsed := core.ElapsedSeconds(task, m.session, m.now)
		cursor := "  "
		line := fmt.Sprintf("%-12s %s %s  %s", task.ID, statusBadge(task.Status), core.FormatDuration(elapsed), task.Title)
		if i == m.selected {
			cursor = "> "
			line = selectedStyle.Render(line)
		}
		b.WriteString(cursor + line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m watchModel) renderInbox() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Notifications (%d unread)", len(m.unread))))

	for i, n := range m.unread {
		if i == maxInboxLines {
			b.WriteString(fmt.Sprintf("\n  ... and %d more", len(m.unread)-maxInboxLines))
			break
		}
		b.WriteString("\n  " + styleForNotification(n.Type).Render(n.Message))
	}
	return b.String()
}

// act applies event to the selected task.
func (m watchModel) act(event core.Event) tea.Cmd {
	if len(m.tasks) == 0 || Lifecycle == nil {
		return nil
	}
	taskID := m.tasks[m.selected].ID
	actor := m.actor
	return func() tea.Msg {
		ctx := context.Background()
		var (
			task *models.Task
			err  error
		)
		switch event {
		case core.EventStart:
			task, err = Lifecycle.Start(ctx, actor, taskID)
		case core.EventPause:
			task, err = Lifecycle.Pause(ctx, actor, taskID)
		case core.EventComplete:
			task, err = Lifecycle.Complete(ctx, actor, taskID)
		default:
			return actionDoneMsg{err: fmt.Errorf("unsupported action %s", event)}
		}
		if err != nil {
			return actionDoneMsg{err: presentError(err)}
		}
		return actionDoneMsg{status: fmt.Sprintf("%s is now %s", task.ID, task.Status)}
	}
}

func tickEverySecond() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func pollFeed() tea.Cmd {
	return tea.Tick(PollInterval, func(time.Time) tea.Msg { return pollMsg{} })
}

func checkHead() tea.Cmd {
	return func() tea.Msg {
		if Feed == nil {
			return headMsg{err: fmt.Errorf("change feed not initialized")}
		}
		head, err := Feed.Head(context.Background())
		return headMsg{head: head, err: err}
	}
}

// load reads the view data. With seed set the inbox is reloaded from the
// persisted unread notifications and the feed head becomes the new
// position. Otherwise the inbox is advanced by the changes after m.head.
func (m watchModel) load(seed bool) tea.Cmd {
	return loadWatchData(m.actor, m.inbox, m.head, seed)
}

// loadWatchData reconciles pending changes, then reads the tasks and timer
// session of actor and brings inbox up to date.
func loadWatchData(actor core.Actor, inbox *core.Inbox, after int64, seed bool) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		drainNotifications(ctx)

		msg := watchLoadedMsg{head: after}
		var err error
		if seed {
			err = seedInbox(ctx, inbox, &msg)
		} else {
			err = advanceInbox(ctx, inbox, &msg)
		}
		if err != nil {
			msg.err = err
			return msg
		}

		tasks, err := Lifecycle.ListTasks(ctx, actor)
		if err != nil {
			msg.err = presentError(fmt.Errorf("loading tasks: %w", err))
			return msg
		}
		msg.tasks = tasks
		msg.session = Lifecycle.CurrentSession()
		if inbox != nil && Notifications != nil {
			msg.unread = inbox.Unread()
		}
		return msg
	}
}

// seedInbox records the feed head and then loads the unread notifications.
// Changes between the two reads are applied again on the next advance.
func seedInbox(ctx context.Context, inbox *core.Inbox, msg *watchLoadedMsg) error {
	if Feed != nil {
		head, err := Feed.Head(ctx)
		if err != nil {
			return fmt.Errorf("reading change feed: %w", err)
		}
		msg.head = head
	}
	if inbox == nil || Notifications == nil {
		return nil
	}
	if err := inbox.Seed(ctx); err != nil {
		return presentError(err)
	}
	return nil
}

// advanceInbox applies every change after msg.head to inbox.
func advanceInbox(ctx context.Context, inbox *core.Inbox, msg *watchLoadedMsg) error {
	if Feed == nil {
		return nil
	}
	for {
		events, err := Feed.Since(ctx, msg.head, watchFeedPage)
		if err != nil {
			return fmt.Errorf("reading change feed: %w", err)
		}
		for _, ev := range events {
			if inbox != nil {
				inbox.Apply(ev)
			}
			msg.head = ev.Seq
		}
		if len(events) < watchFeedPage {
			return nil
		}
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live view of your tasks, running timer and notifications",
	Long: `Launch an interactive terminal view that redraws the running timer every
second and reloads tasks and notifications whenever the change feed moves.

Select a task with the arrow keys and start, pause or complete it with s,
p or c. Refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Lifecycle == nil {
			return fmt.Errorf("task lifecycle not initialized")
		}
		user, err := currentUser()
		if err != nil {
			return err
		}
		p := tea.NewProgram(newWatchModel(user), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
