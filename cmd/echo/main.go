package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/secret-echo/secret-echo/internal/client"
	"github.com/secret-echo/secret-echo/internal/message"
)

const cacheDebounce = time.Second

var (
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	aiStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

func main() {
	cfgPath := flag.String("config", defaultConfigPath(), "config file path")
	server := flag.String("server", "", "server base URL")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	register := flag.Bool("register", false, "register a new account instead of logging in")
	username := flag.String("username", "", "username (register only)")
	flag.Parse()

	cfg := loadConfig(*cfgPath)
	if *server != "" {
		cfg.Server = *server
	}
	if *email != "" {
		cfg.Email = *email
	}
	if *password != "" {
		cfg.Password = *password
	}
	if *username != "" {
		cfg.Username = *username
	}
	if cfg.Email == "" || cfg.Password == "" {
		fmt.Fprintln(os.Stderr, "email and password required (config file or flags)")
		os.Exit(1)
	}

	api := client.NewAPI(cfg.Server)

	var (
		acct *client.Account
		err  error
	)
	if *register {
		acct, err = api.Register(cfg.Email, cfg.Username, cfg.Password)
	} else {
		acct, err = api.Login(cfg.Email, cfg.Password)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "auth failed: %v\n", err)
		os.Exit(1)
	}

	cache, err := client.OpenCache(cfg.CachePath)
	if err != nil {
		// cache is an accelerator, not a requirement
		log.Printf("cache unavailable: %v", err)
		cache = nil
	}

	wsBase := strings.Replace(cfg.Server, "http", "ws", 1)
	sock, err := client.DialSocket(wsBase, acct.Token)
	if err != nil {
		log.Printf("realtime channel unavailable, will keep retrying: %v", err)
		sock = nil
	}

	m := newModel(api, sock, cache, acct, wsBase)
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if sock != nil {
		_ = sock.Close()
	}
	if cache != nil {
		_ = cache.Close()
	}
}

type (
	pushMsg       client.Push
	socketGoneMsg struct{}
	fetchedMsg    []message.View
	fetchErrMsg   struct{ err error }
	sentMsg       struct {
		tempID string
		view   message.View
	}
	sendErrMsg struct {
		tempID string
		err    error
	}
	saveTickMsg struct{}
	redialMsg   struct {
		sock *client.Socket
		next time.Duration
	}
)

const (
	redialInitialWait = time.Second
	redialMaxWait     = 30 * time.Second
)

type model struct {
	api    *client.API
	sock   *client.Socket
	cache  *client.Cache
	acct   *client.Account
	wsBase string

	state       client.State
	savePending bool

	input textinput.Model
	vp    viewport.Model
	spin  spinner.Model
	ready bool
}

func newModel(api *client.API, sock *client.Socket, cache *client.Cache, acct *client.Account, wsBase string) model {
	ti := textinput.New()
	ti.Placeholder = "Type your message..."
	ti.Focus()
	ti.CharLimit = 2000

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		api:    api,
		sock:   sock,
		cache:  cache,
		acct:   acct,
		wsBase: wsBase,
		state:  client.NewState(acct.ID),
		input:  ti,
		spin:   sp,
	}
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.fetchCmd(), m.spin.Tick, textinput.Blink}
	if m.cache != nil {
		cmds = append(cmds, m.loadCacheCmd())
	}
	if m.sock != nil {
		cmds = append(cmds, m.waitForPush())
	} else if m.wsBase != "" {
		cmds = append(cmds, m.redialCmd(redialInitialWait))
	}
	return tea.Batch(cmds...)
}

// redialCmd waits, then tries to re-establish the realtime channel. Each
// failed attempt doubles the wait up to redialMaxWait.
func (m model) redialCmd(wait time.Duration) tea.Cmd {
	wsBase, token := m.wsBase, m.acct.Token
	return func() tea.Msg {
		time.Sleep(wait)
		sock, err := client.DialSocket(wsBase, token)
		if err != nil {
			next := wait * 2
			if next > redialMaxWait {
				next = redialMaxWait
			}
			return redialMsg{next: next}
		}
		return redialMsg{sock: sock}
	}
}

func (m model) loadCacheCmd() tea.Cmd {
	cache, uid := m.cache, m.acct.ID
	return func() tea.Msg {
		entries, err := cache.Load(uid)
		if err != nil {
			return nil
		}
		return client.CacheLoaded{Entries: entries}
	}
}

func (m model) fetchCmd() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		views, err := api.FetchMessages()
		if err != nil {
			return fetchErrMsg{err: err}
		}
		return fetchedMsg(views)
	}
}

func (m model) sendCmd(tempID, content string) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		view, err := api.SendMessage(content)
		if err != nil {
			return sendErrMsg{tempID: tempID, err: err}
		}
		return sentMsg{tempID: tempID, view: *view}
	}
}

func (m model) waitForPush() tea.Cmd {
	sock := m.sock
	return func() tea.Msg {
		p, ok := <-sock.Events()
		if !ok {
			return socketGoneMsg{}
		}
		return pushMsg(p)
	}
}

// scheduleSave coalesces rapid state changes into one cache write.
func (m *model) scheduleSave() tea.Cmd {
	if m.cache == nil || !m.state.DirtyCache || m.savePending {
		return nil
	}
	m.savePending = true
	return tea.Tick(cacheDebounce, func(time.Time) tea.Msg { return saveTickMsg{} })
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			content := strings.TrimSpace(m.input.Value())
			if content == "" {
				return m, nil
			}
			tempID := fmt.Sprintf("temp-%d", time.Now().UnixNano())
			m.state = client.Apply(m.state, client.Submitted{
				TempID:  tempID,
				Content: content,
				Sender: message.Sender{
					ID:          m.acct.ID,
					Username:    m.acct.Username,
					AvatarColor: m.acct.AvatarColor,
				},
				Now: time.Now(),
			})
			m.input.Reset()
			m.refreshViewport()
			cmds = append(cmds, m.sendCmd(tempID, content), m.scheduleSave())
			return m, tea.Batch(cmds...)
		}

	case tea.WindowSizeMsg:
		headerH, footerH := 1, 3
		if !m.ready {
			m.vp = viewport.New(msg.Width, msg.Height-headerH-footerH)
			m.ready = true
		} else {
			m.vp.Width = msg.Width
			m.vp.Height = msg.Height - headerH - footerH
		}
		m.input.Width = msg.Width - 4
		m.refreshViewport()

	case client.CacheLoaded:
		m.state = client.Apply(m.state, msg)
		m.refreshViewport()

	case fetchedMsg:
		m.state = client.Apply(m.state, client.BulkLoaded{Views: msg})
		m.refreshViewport()
		cmds = append(cmds, m.scheduleSave())

	case fetchErrMsg:
		m.state = client.Apply(m.state, client.FetchFailed{Err: msg.err})

	case sentMsg:
		m.state = client.Apply(m.state, client.Confirmed{TempID: msg.tempID, View: msg.view})
		// the reply pipeline is now thinking
		m.state = client.Apply(m.state, client.TypingChanged{IsTyping: true, IsAI: true})
		m.refreshViewport()
		cmds = append(cmds, m.scheduleSave())

	case sendErrMsg:
		m.state = client.Apply(m.state, client.SubmitFailed{TempID: msg.tempID, Err: msg.err})
		m.refreshViewport()

	case pushMsg:
		switch {
		case msg.Message != nil:
			m.state = client.Apply(m.state, client.Pushed{View: *msg.Message})
			m.refreshViewport()
			cmds = append(cmds, m.scheduleSave())
		case msg.Typing != nil:
			m.state = client.Apply(m.state, client.TypingChanged{
				IsTyping: msg.Typing.IsTyping,
				IsAI:     msg.Typing.IsAI,
			})
		}
		cmds = append(cmds, m.waitForPush())

	case socketGoneMsg:
		m.sock = nil
		m.state.Warning = "realtime connection lost, reconnecting..."
		cmds = append(cmds, m.redialCmd(redialInitialWait))

	case redialMsg:
		if msg.sock != nil {
			m.sock = msg.sock
			m.state.Warning = ""
			// refetch to pick up anything pushed during the gap
			cmds = append(cmds, m.waitForPush(), m.fetchCmd())
		} else {
			cmds = append(cmds, m.redialCmd(msg.next))
		}

	case saveTickMsg:
		m.savePending = false
		if m.cache != nil {
			if err := m.cache.Save(m.acct.ID, m.state.CacheEntries()); err != nil {
				log.Printf("cache save failed: %v", err)
			}
		}
		m.state.DirtyCache = false

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.vp, cmd = m.vp.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) refreshViewport() {
	if !m.ready {
		return
	}
	m.vp.SetContent(m.renderMessages())
	m.vp.GotoBottom()
}

func (m model) renderMessages() string {
	if len(m.state.Entries) == 0 {
		return statusStyle.Render("No messages yet. Start a conversation with AI!")
	}
	var b strings.Builder
	for _, e := range m.state.Entries {
		label := userStyle.Render(e.Sender.Username)
		if e.Receiver == message.ReceiverUser {
			label = aiStyle.Render("AI")
		}
		line := fmt.Sprintf("%s  %s", label, e.Content)
		switch {
		case e.Failed:
			line += failedStyle.Render("  (failed)")
		case e.Optimistic:
			line = pendingStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	header := statusStyle.Render(fmt.Sprintf("Secret Echo - %s", m.acct.Username))

	status := ""
	switch {
	case m.state.Loading:
		status = m.spin.View() + " loading messages"
	case m.state.Typing:
		status = m.spin.View() + " AI is typing..."
	case m.state.Warning != "":
		status = warnStyle.Render(m.state.Warning)
	}

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, m.vp.View(), status, m.input.View())
}
