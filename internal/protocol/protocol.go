package protocol

import "encoding/json"

// SchemaVersion is the version stamped into the persisted world document.
const SchemaVersion = 1

// Inbound message types.
const (
	TypeIdentify          = "identify"
	TypeAction            = "action"
	TypeChat              = "chat"
	TypeObserverChat      = "observer_chat"
	TypeGetWorldState     = "get_world_state"
	TypeZoneUpdate        = "zone_update"
	TypeLobsterSpawn      = "lobster_spawn"
	TypeLobsterMove       = "lobster_move"
	TypeBlockPlace        = "block_place"
	TypeBlockRemove       = "block_remove"
	TypeWhisper           = "whisper"
	TypeChannelJoin       = "channel_join"
	TypeChannelLeave      = "channel_leave"
	TypeChannelList       = "channel_list"
	TypeFriendAdd         = "friend_add"
	TypeFriendRemove      = "friend_remove"
	TypeFriendList        = "friend_list"
	TypeGetAuctionIslands = "get_auction_islands"
	TypeGetLeaderboard    = "get_leaderboard"
	TypeGetMyStats        = "get_my_stats"
	TypeIslandVisit       = "island_visit"
	TypeIslandLike        = "island_like"
	TypeGetBalance        = "get_balance"
	TypeBuyAuctionLand    = "buy_auction_land"
)

// Outbound message types.
const (
	TypeWelcome          = "welcome"
	TypeAuthSuccess      = "auth_success"
	TypeAuthFailed       = "auth_failed"
	TypeError            = "error"
	TypeWorldState       = "world_state"
	TypeAgentJoined      = "agent_joined"
	TypeAgentLeft        = "agent_left"
	TypeAgentCount       = "agent_count"
	TypeZoneSync         = "zone_sync"
	TypeIslandAuction    = "island_auction"
	TypeAuctionIslands   = "auction_islands"
	TypeLobsterSpawned   = "lobster_spawned"
	TypeLobsterMoved     = "lobster_moved"
	TypeLobsterSync      = "lobster_sync"
	TypeBlockPlaced      = "block_placed"
	TypeBlockRemoved     = "block_removed"
	TypeBlockPlaceFailed = "block_place_failed"
	TypeWhisperSent      = "whisper_sent"
	TypeChannelJoined    = "channel_joined"
	TypeChannelLeft      = "channel_left"
	TypeChannelListResp  = "channel_list_response"
	TypeChannelUserJoin  = "channel_user_joined"
	TypeChannelUserLeft  = "channel_user_left"
	TypeFriendAdded      = "friend_added"
	TypeFriendRemoved    = "friend_removed"
	TypeFriendListResp   = "friend_list_response"
	TypeFriendRequest    = "friend_request"
	TypeLeaderboardData  = "leaderboard_data"
	TypeMyStats          = "my_stats"
	TypeBalance          = "balance"
	TypeCoinReward       = "coin_reward"
	TypeLikeResult       = "like_result"
	TypeBuyResult        = "buy_result"
	TypeLandPurchased    = "land_purchased"
	TypeWeeklyRewards    = "weekly_rewards_distributed"
)

// Roles.
const (
	RoleAgent    = "agent"
	RoleObserver = "observer"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type string `json:"type"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
