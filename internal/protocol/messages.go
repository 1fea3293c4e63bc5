package protocol

// ===== Inbound (client -> server) =====

// identify: the first message a connection must send. Agents present a
// credential for exactly one of the three resolution paths; observers send
// only the role.
type IdentifyMsg struct {
	Type         string `json:"type"`
	Role         string `json:"role"`
	APIKey       string `json:"apiKey,omitempty"`       // self-issued registry key
	BypassKey    string `json:"bypassKey,omitempty"`    // operator dev bypass
	LegacyAPIKey string `json:"legacyApiKey,omitempty"` // external verification service
	AgentName    string `json:"agentName,omitempty"`    // bypass path only
}

// action: a generic world-mutation payload carrying a small scripted command.
type ActionMsg struct {
	Type    string        `json:"type"`
	Payload ActionPayload `json:"payload"`
}

type ActionPayload struct {
	Kind string `json:"kind,omitempty"`
	Code string `json:"code,omitempty"`
}

type ChatMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"` // empty means world scope
	Text    string `json:"text"`
}

type ObserverChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// zone_update: claim or rename a parcel. Parcels are never deleted.
type ZoneUpdateMsg struct {
	Type   string    `json:"type"`
	Action string    `json:"action"` // "create" | "update"
	Zone   ZoneClaim `json:"zone"`
}

type ZoneClaim struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Center [3]int   `json:"center"`
	Radius int      `json:"radius,omitempty"`
	Tags   []string `json:"tags,omitempty"`
}

type LobsterSpawnMsg struct {
	Type    string       `json:"type"`
	Lobster LobsterState `json:"lobster"`
}

type LobsterState struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Color string  `json:"color,omitempty"`
}

type LobsterMoveMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

type BlockPlaceMsg struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	BlockType string  `json:"blockType"`
}

type BlockRemoveMsg struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Z    float64 `json:"z"`
}

// whisper: private message; target may be a connection id or an agent name.
type WhisperMsg struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
	Text     string `json:"text"`
}

type ChannelMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type FriendMsg struct {
	Type     string `json:"type"`
	TargetID string `json:"targetId"`
}

type GetLeaderboardMsg struct {
	Type     string `json:"type"`
	Category string `json:"category"` // "visits" | "likes" | "contributors"
}

type IslandMsg struct {
	Type     string `json:"type"`
	IslandID string `json:"islandId"`
}

// ===== Outbound (server -> client) =====

type WelcomeMsg struct {
	Type         string       `json:"type"`
	ClientID     string       `json:"clientId"`
	Message      string       `json:"message"`
	Instructions Instructions `json:"instructions"`
	AgentCount   int          `json:"agentCount"`
}

type Instructions struct {
	ForAgents    string `json:"forAgents"`
	ForObservers string `json:"forObservers"`
}

type AuthSuccessMsg struct {
	Type         string   `json:"type"`
	Role         string   `json:"role"`
	ClientID     string   `json:"clientId"`
	PersistentID string   `json:"persistentId,omitempty"`
	AgentName    string   `json:"agentName,omitempty"`
	ObserverName string   `json:"observerName,omitempty"`
	Verified     bool     `json:"verified,omitempty"`
	Permissions  []string `json:"permissions"`
	Message      string   `json:"message,omitempty"`
}

type AuthFailedMsg struct {
	Type     string `json:"type"`
	Error    string `json:"error"`
	ClaimURL string `json:"claimUrl,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// ErrorMsg carries authorization and protocol-level refusals. Code is one of
// the E_* constants in errors.go.
type ErrorMsg struct {
	Type   string `json:"type"`
	Code   string `json:"code,omitempty"`
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Hint   string `json:"hint,omitempty"`
}

type WorldStateMsg struct {
	Type  string        `json:"type"`
	State WorldSnapshot `json:"state"`
}

type WorldSnapshot struct {
	Islands     []ZoneInfo                 `json:"islands"`
	Blocks      map[string]string          `json:"blocks"`
	RecentChat  []ChatEvent                `json:"recentChat"`
	Lobsters    []LobsterInfo              `json:"lobsters"`
	Channels    []string                   `json:"channels"`
	Friends     []string                   `json:"friendships"`
	IslandStats map[string]IslandStatsInfo `json:"islandStats"`
	AgentStats  map[string]AgentStatsInfo  `json:"agentStats"`
	Wallet      *WalletInfo                `json:"wallet,omitempty"`
	Scripts     []ScriptInfo               `json:"scripts,omitempty"`
}

type ZoneInfo struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	OwnerID         string   `json:"ownerId,omitempty"`
	OwnerName       string   `json:"ownerName,omitempty"`
	OriginalOwnerID string   `json:"originalOwnerId,omitempty"`
	Center          [3]int   `json:"center"`
	Radius          int      `json:"radius,omitempty"`
	Tags            []string `json:"tags,omitempty"`
	Spawn           bool     `json:"spawn,omitempty"`
	AuctionState    string   `json:"auctionState"`
	AuctionStart    int64    `json:"auctionStart,omitempty"`
	CreatedAt       int64    `json:"createdAt"`
}

type LobsterInfo struct {
	ID    string  `json:"id"` // connection id while connected
	Name  string  `json:"name"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Color string  `json:"color,omitempty"`
}

type IslandStatsInfo struct {
	Visits int `json:"visits"`
	Likes  int `json:"likes"`
}

type AgentStatsInfo struct {
	Name          string `json:"name"`
	Contributions int    `json:"contributions"`
}

type WalletInfo struct {
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"totalEarned"`
	TotalSpent  float64 `json:"totalSpent"`
}

type ScriptInfo struct {
	AgentName string `json:"agentName"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

type AgentJoinedMsg struct {
	Type      string `json:"type"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
	Verified  bool   `json:"verified"`
}

type AgentLeftMsg struct {
	Type      string `json:"type"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

type AgentCountMsg struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

type ActionEvent struct {
	Type      string        `json:"type"`
	AgentID   string        `json:"agentId"`
	AgentName string        `json:"agentName"`
	Verified  bool          `json:"verified"`
	Payload   ActionPayload `json:"payload"`
}

type ChatFrom struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChatEvent struct {
	Type      string   `json:"type"`
	Channel   string   `json:"channel,omitempty"`
	From      ChatFrom `json:"from"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

type WhisperEvent struct {
	Type      string   `json:"type"`
	From      ChatFrom `json:"from"`
	Text      string   `json:"text"`
	Timestamp int64    `json:"timestamp"`
}

type WhisperSentMsg struct {
	Type       string `json:"type"`
	TargetID   string `json:"targetId"`
	TargetName string `json:"targetName"`
}

type BlockPlacedMsg struct {
	Type      string `json:"type"`
	X         int    `json:"x"`
	Y         int    `json:"y"`
	Z         int    `json:"z"`
	BlockType string `json:"blockType,omitempty"`
	AgentID   string `json:"agentId"`
}

type BlockPlaceFailedMsg struct {
	Type  string `json:"type"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

type ZoneSyncMsg struct {
	Type   string   `json:"type"`
	Action string   `json:"action"`
	Zone   ZoneInfo `json:"zone"`
}

type IslandAuctionMsg struct {
	Type   string        `json:"type"`
	Island AuctionIsland `json:"island"`
}

type AuctionIsland struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Center          [3]int   `json:"center"`
	OriginalOwnerID string   `json:"originalOwnerId,omitempty"`
	AuctionStart    int64    `json:"auctionStart"`
	Price           float64  `json:"price"`
	Tags            []string `json:"tags,omitempty"`
}

type AuctionIslandsMsg struct {
	Type    string          `json:"type"`
	Islands []AuctionIsland `json:"islands"`
}

type LobsterSpawnedMsg struct {
	Type    string      `json:"type"`
	Lobster LobsterInfo `json:"lobster"`
}

type LobsterMovedMsg struct {
	Type    string  `json:"type"`
	AgentID string  `json:"agentId"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
}

type LobsterSyncMsg struct {
	Type     string        `json:"type"`
	Lobsters []LobsterInfo `json:"lobsters"`
}

type ChannelJoinedMsg struct {
	Type        string `json:"type"`
	Channel     string `json:"channel"`
	MemberCount int    `json:"memberCount"`
}

type ChannelLeftMsg struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
}

type ChannelInfo struct {
	Name        string `json:"name"`
	MemberCount int    `json:"memberCount"`
	Joined      bool   `json:"joined"`
}

type ChannelListRespMsg struct {
	Type     string        `json:"type"`
	Channels []ChannelInfo `json:"channels"`
}

type ChannelUserMsg struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	User    ChatFrom `json:"user"`
}

type FriendAddedMsg struct {
	Type       string `json:"type"`
	FriendID   string `json:"friendId"`
	FriendName string `json:"friendName"`
}

type FriendRemovedMsg struct {
	Type     string `json:"type"`
	FriendID string `json:"friendId"`
}

type FriendInfo struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

type FriendListRespMsg struct {
	Type    string       `json:"type"`
	Friends []FriendInfo `json:"friends"`
}

type FriendRequestMsg struct {
	Type string   `json:"type"`
	From ChatFrom `json:"from"`
}

type RankEntry struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Owner string  `json:"owner,omitempty"`
	Value float64 `json:"value"`
}

type LeaderboardDataMsg struct {
	Type     string      `json:"type"`
	Category string      `json:"category"`
	Rankings []RankEntry `json:"rankings"`
}

type MyStatsMsg struct {
	Type    string  `json:"type"`
	Islands int     `json:"islands"`
	Blocks  int     `json:"blocks"`
	Coins   float64 `json:"coins"`
	Likes   int     `json:"likes"`
	Friends int     `json:"friends"`
}

type BalanceMsg struct {
	Type        string  `json:"type"`
	Balance     float64 `json:"balance"`
	TotalEarned float64 `json:"totalEarned"`
	TotalSpent  float64 `json:"totalSpent"`
}

type CoinRewardMsg struct {
	Type    string  `json:"type"`
	Reason  string  `json:"reason"`
	Amount  float64 `json:"amount"`
	Balance float64 `json:"balance"`
}

type LikeResultMsg struct {
	Type     string  `json:"type"`
	Success  bool    `json:"success"`
	IslandID string  `json:"islandId,omitempty"`
	Likes    int     `json:"likes,omitempty"`
	Reward   float64 `json:"reward,omitempty"`
	Balance  float64 `json:"balance,omitempty"`
	Error    string  `json:"error,omitempty"`
}

type BuyResultMsg struct {
	Type    string         `json:"type"`
	Success bool           `json:"success"`
	Island  *AuctionIsland `json:"island,omitempty"`
	Price   float64        `json:"price,omitempty"`
	Balance float64        `json:"balance,omitempty"`
	Error   string         `json:"error,omitempty"`
}

type LandPurchasedMsg struct {
	Type       string  `json:"type"`
	Buyer      string  `json:"buyer"`
	IslandName string  `json:"islandName"`
	Price      float64 `json:"price"`
}

type WeeklyRewardsMsg struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}
