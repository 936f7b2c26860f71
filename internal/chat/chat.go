// Package chat is the ICB protocol processor: logins, groups, open and
// personal messages and the small set of commands icbd supports.  It
// sits on top of the server's framing and never touches sockets.
package chat

import (
	"sort"
	"time"

	"icbd/config"
	"icbd/internal/logsink"
	"icbd/internal/session"
	"icbd/util"
)

// Transport is what the processor needs from the server.  All methods
// are called on the event loop.
type Transport interface {
	Send(s *session.Session, pkt []byte) error
	Drop(s *session.Session, reason string)
	Lookup(id uint64) (*session.Session, bool)
}

// Options configure a Processor.
type Options struct {
	ServerName   string
	CreateGroups bool     // logins and "g" may create groups
	Groups       []string // always present
	ModTab       *ModTab
	ChatLog      *logsink.Client
	Logger       *util.Logger
	Now          func() time.Time
}

// member is the per-session state kept in session.Handle.
type member struct {
	id      uint64
	loginID string
	nick    string
	group   *group
	since   time.Time
}

func (m *member) loggedIn() bool { return m.nick != "" }

type group struct {
	name    string
	topic   string
	fixed   bool // never removed when empty
	members map[uint64]*member
}

// Processor implements server.Processor.
type Processor struct {
	t      Transport
	opts   Options
	log    *util.Logger
	groups map[string]*group
	nicks  map[string]*member
}

// New returns a Processor with the default group and opts.Groups
// created.
func New(t Transport, opts Options) *Processor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Processor{
		t:      t,
		opts:   opts,
		log:    opts.Logger,
		groups: make(map[string]*group),
		nicks:  make(map[string]*member),
	}
	p.addGroup(config.DefaultLoginGroup).fixed = true
	for _, g := range opts.Groups {
		p.addGroup(g).fixed = true
	}
	return p
}

// Start greets a new connection with the protocol packet.
func (p *Processor) Start(s *session.Session) {
	s.Handle = &member{id: s.ID}
	p.send(s, build(pktProtocol, protocolLevel, p.opts.ServerName, "icbd"))
}

// Input handles one client packet.
func (p *Processor) Input(s *session.Session, pkt []byte) bool {
	m, ok := s.Handle.(*member)
	if !ok || len(pkt) == 0 {
		return false
	}
	typ, body := pkt[0], fields(pkt[1:])

	if !m.loggedIn() && typ != pktLogin {
		p.t.Drop(s, "not logged in")
		return true
	}

	switch typ {
	case pktLogin:
		return p.login(s, m, body)
	case pktOpen:
		p.open(m, field(body, 0))
	case pktCommand:
		return p.command(s, m, field(body, 0), field(body, 1))
	case pktPing:
		p.send(s, build(pktPong, body...))
	case pktNoop:
	default:
		p.send(s, build(pktError, "Unknown packet type"))
	}
	return false
}

// Remove signs the member off.
func (p *Processor) Remove(s *session.Session, reason string) {
	m, ok := s.Handle.(*member)
	if !ok || !m.loggedIn() {
		return
	}
	delete(p.nicks, m.nick)
	g := m.group
	p.leave(m)

	msg := m.nick + " has signed off"
	if reason != "" {
		msg += " (" + reason + ")"
	}
	p.status(g, nil, "Sign-off", msg)
}

// ── login ────────────────────────────────────────────────────────────

// login handles "loginid^Anick^Agroup^Acommand^Apassword".
func (p *Processor) login(s *session.Session, m *member, f []string) bool {
	if m.loggedIn() {
		p.send(s, build(pktError, "Already logged in"))
		return false
	}
	loginID, nick, gname, cmd := field(f, 0), field(f, 1), field(f, 2), field(f, 3)

	if cmd == "w" {
		p.who(s, "")
		p.t.Drop(s, "")
		return true
	}
	if cmd != "login" {
		p.send(s, build(pktError, "Unsupported login command"))
		p.t.Drop(s, "bad login")
		return true
	}
	if !validName(nick, config.MaxNickLen) {
		p.send(s, build(pktError, "Invalid nickname"))
		p.t.Drop(s, "invalid nickname")
		return true
	}
	if _, taken := p.nicks[nick]; taken {
		p.send(s, build(pktError, "Nickname already in use"))
		p.t.Drop(s, "nickname in use")
		return true
	}
	if gname == "" {
		gname = config.DefaultLoginGroup
	}
	g, err := p.findGroup(gname)
	if err != "" {
		p.send(s, build(pktError, err))
		p.t.Drop(s, "bad group")
		return true
	}

	m.loginID = loginID
	m.nick = nick
	m.since = p.opts.Now()
	p.nicks[nick] = m
	p.log.Debug("%s: %s logged in to %s", s, nick, g.name)

	p.send(s, build(pktLogin))
	p.join(s, m, g, "Sign-on", nick+" ("+loginID+"@"+s.Name()+") entered group")
	return false
}

// ── messages ─────────────────────────────────────────────────────────

func (p *Processor) open(m *member, text string) {
	if text == "" {
		return
	}
	pkt := build(pktOpen, m.nick, text)
	for id := range m.group.members {
		if id == m.id {
			continue
		}
		p.sendTo(id, pkt)
	}
	p.opts.ChatLog.Log(p.opts.Now(), m.group.name, m.nick, text)
}

// ── groups ───────────────────────────────────────────────────────────

func (p *Processor) addGroup(name string) *group {
	g := &group{name: name, members: make(map[uint64]*member)}
	p.groups[name] = g
	return g
}

// findGroup returns the named group, creating it if allowed.  A
// non-empty string is the error to report to the client.
func (p *Processor) findGroup(name string) (*group, string) {
	if g, ok := p.groups[name]; ok {
		return g, ""
	}
	if !validName(name, config.MaxGroupLen) {
		return nil, "Invalid group name"
	}
	if !p.opts.CreateGroups {
		return nil, "Can't create new groups"
	}
	return p.addGroup(name), ""
}

func (p *Processor) join(s *session.Session, m *member, g *group, event, msg string) {
	p.status(g, nil, event, msg)
	g.members[m.id] = m
	m.group = g
	p.send(s, build(pktStatus, "Status", "You are now in group "+g.name))
	if g.topic != "" {
		p.send(s, build(pktStatus, "Topic", "The topic is: "+g.topic))
	}
}

func (p *Processor) leave(m *member) {
	g := m.group
	if g == nil {
		return
	}
	delete(g.members, m.id)
	m.group = nil
	if len(g.members) == 0 && !g.fixed {
		delete(p.groups, g.name)
	}
}

// status sends a status message to every member of g except skip.
func (p *Processor) status(g *group, skip *member, event, msg string) {
	if g == nil {
		return
	}
	pkt := build(pktStatus, event, msg)
	for id, m := range g.members {
		if m == skip {
			continue
		}
		p.sendTo(id, pkt)
	}
}

func (p *Processor) sortedGroups() []*group {
	out := make([]*group, 0, len(p.groups))
	for _, g := range p.groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// ── output ───────────────────────────────────────────────────────────

func (p *Processor) send(s *session.Session, pkt []byte) {
	if err := p.t.Send(s, pkt); err != nil {
		p.log.Debug("%s: send: %v", s, err)
	}
}

func (p *Processor) sendTo(id uint64, pkt []byte) {
	if s, ok := p.t.Lookup(id); ok {
		p.send(s, pkt)
	}
}
