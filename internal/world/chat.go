package world

import (
	"encoding/json"
	"strings"

	"aiworld.dev/internal/protocol"
)

const (
	worldChannel    = "world"
	maxChatLen      = 500
	maxObserverChat = 200
)

func (w *World) handleChat(s *Session, data []byte) {
	var msg protocol.ChatMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxChatLen {
		text = text[:maxChatLen]
	}
	channel := msg.Channel
	if channel == "" {
		channel = worldChannel
	}
	now := w.now().UnixMilli()
	w.state.Chat = append(w.state.Chat, ChatRecord{
		Channel:   channel,
		FromID:    s.PersistentID,
		FromName:  s.Name,
		Text:      text,
		Timestamp: now,
	})
	if len(w.state.Chat) > w.cfg.ChatHistoryMax {
		w.state.Chat = append([]ChatRecord(nil), w.state.Chat[len(w.state.Chat)-w.cfg.ChatHistoryTrim:]...)
	}
	w.markDirty()
	ev := protocol.ChatEvent{
		Type:      protocol.TypeChat,
		Channel:   channel,
		From:      protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
		Text:      text,
		Timestamp: now,
	}
	if channel == worldChannel {
		w.broadcastAll(ev, s.ConnID)
	} else {
		w.broadcastChannel(channel, ev, s.ConnID)
	}
}

func (w *World) handleObserverChat(s *Session, data []byte) {
	var msg protocol.ObserverChatMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}
	if len(text) > maxObserverChat {
		text = text[:maxObserverChat]
	}
	// Spectator chatter stays on the observer side and is never persisted.
	w.broadcastObservers(protocol.ChatEvent{
		Type:      protocol.TypeObserverChat,
		From:      protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
		Text:      text,
		Timestamp: w.now().UnixMilli(),
	})
}

func (w *World) handleWhisper(s *Session, data []byte) {
	var msg protocol.WhisperMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.TargetID == "" {
		return
	}
	if len(text) > maxChatLen {
		text = text[:maxChatLen]
	}
	target := w.agents[msg.TargetID]
	if target == nil {
		for _, a := range w.agents {
			if strings.EqualFold(a.Name, msg.TargetID) {
				target = a
				break
			}
		}
	}
	if target == nil || target.ConnID == s.ConnID {
		w.sendError(s, protocol.ErrNotFound, "agent not found or offline",
			"whispers need the target online; check agent_count or the roster")
		return
	}
	w.send(target, protocol.WhisperEvent{
		Type:      protocol.TypeWhisper,
		From:      protocol.ChatFrom{ID: s.ConnID, Name: s.Name},
		Text:      text,
		Timestamp: w.now().UnixMilli(),
	})
	w.send(s, protocol.WhisperSentMsg{
		Type:       protocol.TypeWhisperSent,
		TargetID:   target.ConnID,
		TargetName: target.Name,
	})
}
