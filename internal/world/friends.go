package world

import (
	"encoding/json"
	"sort"
	"strings"

	"aiworld.dev/internal/protocol"
)

// Friendships are one-directional follows keyed by persistent identity, so
// they survive reconnects and renames.

func (w *World) friendSet(pid string) map[string]struct{} {
	set := w.state.Friends[pid]
	if set == nil {
		set = map[string]struct{}{}
		w.state.Friends[pid] = set
	}
	return set
}

// resolveFriendTarget maps a connection id or an agent name to a persistent
// identity; an unknown string is assumed to already be one.
func (w *World) resolveFriendTarget(raw string) (pid, name string) {
	if s, ok := w.agents[raw]; ok {
		return s.PersistentID, s.Name
	}
	for _, s := range w.agents {
		if strings.EqualFold(s.Name, raw) {
			return s.PersistentID, s.Name
		}
	}
	if as := w.state.AgentStats[raw]; as != nil {
		return raw, as.Name
	}
	return raw, raw
}

func (w *World) handleFriendAdd(s *Session, data []byte) {
	var msg protocol.FriendMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if msg.TargetID == "" {
		return
	}
	pid, name := w.resolveFriendTarget(msg.TargetID)
	if pid == s.PersistentID {
		w.sendError(s, protocol.ErrBadRequest, "cannot befriend yourself", "")
		return
	}
	set := w.friendSet(s.PersistentID)
	if _, in := set[pid]; in {
		w.sendError(s, protocol.ErrAlreadyDone, "already friends", "")
		return
	}
	set[pid] = struct{}{}
	w.markDirty()
	w.send(s, protocol.FriendAddedMsg{Type: protocol.TypeFriendAdded, FriendID: pid, FriendName: name})
	if target := w.agentByPersistentID(pid); target != nil {
		w.send(target, protocol.FriendRequestMsg{
			Type: protocol.TypeFriendRequest,
			From: protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
		})
	}
}

func (w *World) handleFriendRemove(s *Session, data []byte) {
	var msg protocol.FriendMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	pid, _ := w.resolveFriendTarget(msg.TargetID)
	set := w.state.Friends[s.PersistentID]
	if set == nil {
		return
	}
	if _, in := set[pid]; !in {
		return
	}
	delete(set, pid)
	w.markDirty()
	w.send(s, protocol.FriendRemovedMsg{Type: protocol.TypeFriendRemoved, FriendID: pid})
}

func (w *World) handleFriendList(s *Session, data []byte) {
	resp := protocol.FriendListRespMsg{Type: protocol.TypeFriendListResp, Friends: []protocol.FriendInfo{}}
	pids := make([]string, 0, len(w.state.Friends[s.PersistentID]))
	for pid := range w.state.Friends[s.PersistentID] {
		pids = append(pids, pid)
	}
	sort.Strings(pids)
	for _, pid := range pids {
		name := pid
		if as := w.state.AgentStats[pid]; as != nil && as.Name != "" {
			name = as.Name
		}
		resp.Friends = append(resp.Friends, protocol.FriendInfo{
			ID:     pid,
			Name:   name,
			Online: w.agentByPersistentID(pid) != nil,
		})
	}
	w.send(s, resp)
}
