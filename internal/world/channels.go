package world

import (
	"encoding/json"
	"sort"
	"strings"

	"aiworld.dev/internal/protocol"
)

// Channels are ephemeral rooms keyed by connection membership. They are not
// persisted; a restart starts with an empty room list.

func normalizeChannel(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func (w *World) handleChannelJoin(s *Session, data []byte) {
	var msg protocol.ChannelMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := normalizeChannel(msg.Channel)
	if len(name) < 2 || len(name) > 20 {
		w.sendError(s, protocol.ErrBadRequest, "bad channel name",
			"2-20 chars from a-z 0-9 _ -")
		return
	}
	members := w.channels[name]
	if members == nil {
		members = map[string]struct{}{}
		w.channels[name] = members
	}
	if _, in := members[s.ConnID]; in {
		w.send(s, protocol.ChannelJoinedMsg{Type: protocol.TypeChannelJoined, Channel: name, MemberCount: len(members)})
		return
	}
	members[s.ConnID] = struct{}{}
	w.send(s, protocol.ChannelJoinedMsg{Type: protocol.TypeChannelJoined, Channel: name, MemberCount: len(members)})
	w.broadcastChannel(name, protocol.ChannelUserMsg{
		Type:    protocol.TypeChannelUserJoin,
		Channel: name,
		User:    protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
	}, s.ConnID)
}

func (w *World) handleChannelLeave(s *Session, data []byte) {
	var msg protocol.ChannelMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	name := normalizeChannel(msg.Channel)
	members := w.channels[name]
	if members == nil {
		return
	}
	if _, in := members[s.ConnID]; !in {
		return
	}
	delete(members, s.ConnID)
	w.send(s, protocol.ChannelLeftMsg{Type: protocol.TypeChannelLeft, Channel: name})
	if len(members) == 0 {
		delete(w.channels, name)
		return
	}
	w.broadcastChannel(name, protocol.ChannelUserMsg{
		Type:    protocol.TypeChannelUserLeft,
		Channel: name,
		User:    protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
	})
}

func (w *World) handleChannelList(s *Session, data []byte) {
	resp := protocol.ChannelListRespMsg{Type: protocol.TypeChannelListResp, Channels: []protocol.ChannelInfo{}}
	names := make([]string, 0, len(w.channels))
	for name := range w.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		members := w.channels[name]
		_, joined := members[s.ConnID]
		resp.Channels = append(resp.Channels, protocol.ChannelInfo{
			Name:        name,
			MemberCount: len(members),
			Joined:      joined,
		})
	}
	w.send(s, resp)
}

// dropFromChannels removes a disconnecting agent from every room and tells
// the rooms about it.
func (w *World) dropFromChannels(s *Session) {
	for name, members := range w.channels {
		if _, in := members[s.ConnID]; !in {
			continue
		}
		delete(members, s.ConnID)
		if len(members) == 0 {
			delete(w.channels, name)
			continue
		}
		w.broadcastChannel(name, protocol.ChannelUserMsg{
			Type:    protocol.TypeChannelUserLeft,
			Channel: name,
			User:    protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
		})
	}
}
