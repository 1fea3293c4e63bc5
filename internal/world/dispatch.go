package world

import "aiworld.dev/internal/protocol"

// handlers routes decoded message types to their world methods. Payloads are
// unmarshalled inside the handler so each one validates its own union arm.
var handlers = map[string]func(*World, *Session, []byte){
	protocol.TypeAction:            (*World).handleAction,
	protocol.TypeChat:              (*World).handleChat,
	protocol.TypeObserverChat:      (*World).handleObserverChat,
	protocol.TypeGetWorldState:     (*World).handleGetWorldState,
	protocol.TypeZoneUpdate:        (*World).handleZoneUpdate,
	protocol.TypeLobsterSpawn:      (*World).handleLobsterSpawn,
	protocol.TypeLobsterMove:       (*World).handleLobsterMove,
	protocol.TypeBlockPlace:        (*World).handleBlockPlace,
	protocol.TypeBlockRemove:       (*World).handleBlockRemove,
	protocol.TypeWhisper:           (*World).handleWhisper,
	protocol.TypeChannelJoin:       (*World).handleChannelJoin,
	protocol.TypeChannelLeave:      (*World).handleChannelLeave,
	protocol.TypeChannelList:       (*World).handleChannelList,
	protocol.TypeFriendAdd:         (*World).handleFriendAdd,
	protocol.TypeFriendRemove:      (*World).handleFriendRemove,
	protocol.TypeFriendList:        (*World).handleFriendList,
	protocol.TypeGetAuctionIslands: (*World).handleGetAuctionIslands,
	protocol.TypeGetLeaderboard:    (*World).handleGetLeaderboard,
	protocol.TypeGetMyStats:        (*World).handleGetMyStats,
	protocol.TypeIslandVisit:       (*World).handleIslandVisit,
	protocol.TypeIslandLike:        (*World).handleIslandLike,
	protocol.TypeGetBalance:        (*World).handleGetBalance,
	protocol.TypeBuyAuctionLand:    (*World).handleBuyAuctionLand,
}

// agentOnly marks every mutation plus the account-scoped reads. An observer
// calling one of these gets an observable refusal, not silence.
var agentOnly = map[string]bool{
	protocol.TypeAction:         true,
	protocol.TypeChat:           true,
	protocol.TypeZoneUpdate:     true,
	protocol.TypeLobsterSpawn:   true,
	protocol.TypeLobsterMove:    true,
	protocol.TypeBlockPlace:     true,
	protocol.TypeBlockRemove:    true,
	protocol.TypeWhisper:        true,
	protocol.TypeChannelJoin:    true,
	protocol.TypeChannelLeave:   true,
	protocol.TypeChannelList:    true,
	protocol.TypeFriendAdd:      true,
	protocol.TypeFriendRemove:   true,
	protocol.TypeFriendList:     true,
	protocol.TypeGetMyStats:     true,
	protocol.TypeIslandVisit:    true,
	protocol.TypeIslandLike:     true,
	protocol.TypeGetBalance:     true,
	protocol.TypeBuyAuctionLand: true,
}

func (w *World) dispatch(env Envelope) {
	s := w.sessionFor(env.ConnID)
	if s == nil {
		return
	}
	base, err := protocol.DecodeBase(env.Data)
	if err != nil {
		return
	}
	h, ok := handlers[base.Type]
	if !ok {
		w.log.Printf("unknown message type %q from %s", base.Type, env.ConnID)
		return
	}
	if agentOnly[base.Type] && s.Role != protocol.RoleAgent {
		w.sendError(s, protocol.ErrNoPermission, "permission denied",
			"observers are read-only; connect with role \"agent\" to act in the world")
		return
	}
	if base.Type == protocol.TypeObserverChat && s.Role != protocol.RoleObserver {
		w.sendError(s, protocol.ErrNoPermission, "permission denied",
			"observer_chat is the spectator channel; agents use chat")
		return
	}
	h(w, s, env.Data)
}
