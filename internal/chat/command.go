package chat

import (
	"fmt"
	"sort"
	"strings"

	"icbd/config"
	"icbd/internal/session"
)

// command dispatches an "h" packet.  It returns true if s was dropped.
func (p *Processor) command(s *session.Session, m *member, cmd, args string) bool {
	switch cmd {
	case "w":
		p.who(s, strings.TrimSpace(args))
	case "g":
		p.changeGroup(s, m, strings.TrimSpace(args))
	case "m":
		p.personal(s, m, args)
	case "topic":
		p.setTopic(s, m, strings.TrimSpace(args))
	case "boot":
		return p.boot(s, m, strings.TrimSpace(args))
	default:
		p.send(s, build(pktError, "Unsupported command"))
	}
	return false
}

// who lists the members of one group, or of all groups.  Moderators
// are marked with '*'.
func (p *Processor) who(s *session.Session, only string) {
	var users, groups int
	for _, g := range p.sortedGroups() {
		if only != "" && g.name != only {
			continue
		}
		if len(g.members) == 0 {
			continue
		}
		groups++
		header := "Group: " + g.name
		if g.topic != "" {
			header += "  Topic: " + g.topic
		}
		p.output(s, header)

		members := make([]*member, 0, len(g.members))
		for _, m := range g.members {
			members = append(members, m)
		}
		sort.Slice(members, func(i, j int) bool { return members[i].nick < members[j].nick })
		for _, m := range members {
			mark := " "
			if p.opts.ModTab.IsModerator(m.nick) {
				mark = "*"
			}
			host := ""
			if ms, ok := p.t.Lookup(m.id); ok {
				host = ms.Name()
			}
			p.output(s, fmt.Sprintf("  %s%-12s %s@%s", mark, m.nick, m.loginID, host))
			users++
		}
	}
	p.output(s, fmt.Sprintf("Total: %d users in %d groups", users, groups))
}

func (p *Processor) output(s *session.Session, line string) {
	p.send(s, build(pktOutput, "co", line))
}

func (p *Processor) changeGroup(s *session.Session, m *member, name string) {
	if name == "" {
		p.send(s, build(pktError, "Group name required"))
		return
	}
	if m.group != nil && m.group.name == name {
		p.send(s, build(pktError, "You are already in group "+name))
		return
	}
	g, errMsg := p.findGroup(name)
	if errMsg != "" {
		p.send(s, build(pktError, errMsg))
		return
	}
	old := m.group
	p.leave(m)
	p.status(old, nil, "Depart", m.nick+" just left")
	p.join(s, m, g, "Arrive", m.nick+" entered group")
}

// personal handles "m nick text".
func (p *Processor) personal(s *session.Session, m *member, args string) {
	to, text, _ := strings.Cut(strings.TrimLeft(args, " "), " ")
	if to == "" || text == "" {
		p.send(s, build(pktError, "Usage: m nick message"))
		return
	}
	target, ok := p.nicks[to]
	if !ok {
		p.send(s, build(pktError, to+" not signed on"))
		return
	}
	p.sendTo(target.id, build(pktPersonal, m.nick, text))
}

func (p *Processor) setTopic(s *session.Session, m *member, topic string) {
	if len(topic) > config.MaxGroupLen*2 {
		topic = topic[:config.MaxGroupLen*2]
	}
	m.group.topic = topic
	p.status(m.group, nil, "Topic", m.nick+" changed the topic to \""+topic+"\"")
}

// boot lets a moderator disconnect another user.
func (p *Processor) boot(s *session.Session, m *member, nick string) bool {
	if !p.opts.ModTab.IsModerator(m.nick) {
		p.send(s, build(pktError, "You aren't a moderator"))
		return false
	}
	target, ok := p.nicks[nick]
	if !ok {
		p.send(s, build(pktError, nick+" not signed on"))
		return false
	}
	ts, ok := p.t.Lookup(target.id)
	if !ok {
		return false
	}
	p.send(ts, build(pktStatus, "Boot", "You were booted by "+m.nick))
	p.log.Info("%s: %s booted %s", s, m.nick, nick)
	p.t.Drop(ts, "booted")
	return ts == s
}
