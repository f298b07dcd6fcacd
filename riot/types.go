package riot

// accountResponse is returned by /riot/account/v1/accounts/by-riot-id.
type accountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// summonerResponse is returned by /lol/summoner/v4/summoners/by-puuid.
type summonerResponse struct {
	PUUID         string `json:"puuid"`
	SummonerLevel int    `json:"summonerLevel"`
}

// matchResponse is returned by /lol/match/v5/matches/{matchId}.
type matchResponse struct {
	Metadata struct {
		MatchID      string   `json:"matchId"`
		Participants []string `json:"participants"`
	} `json:"metadata"`
	Info matchInfo `json:"info"`
}

type matchInfo struct {
	GameMode           string             `json:"gameMode"`
	Participants       []matchParticipant `json:"participants"`
	GameCreation       int64              `json:"gameCreation"`
	GameStartTimestamp int64              `json:"gameStartTimestamp"`
	GameEndTimestamp   int64              `json:"gameEndTimestamp"`
	GameDuration       int64              `json:"gameDuration"` // Seconds when GameEndTimestamp is set, milliseconds otherwise
	MapID              int                `json:"mapId"`
	QueueID            int                `json:"queueId"`
}

type matchParticipant struct {
	PUUID          string `json:"puuid"`
	RiotIDGameName string `json:"riotIdGameName"`
	RiotIDTagline  string `json:"riotIdTagline"`
	SummonerName   string `json:"summonerName"`
	ChampionName   string `json:"championName"`
	TeamPosition   string `json:"teamPosition"`
	TeamID         int    `json:"teamId"`
	Kills          int    `json:"kills"`
	Deaths         int    `json:"deaths"`
	Assists        int    `json:"assists"`
	ChampLevel     int    `json:"champLevel"`
	Win            bool   `json:"win"`
}

// activeGameResponse is returned by /lol/spectator/v5/active-games/by-summoner.
type activeGameResponse struct {
	PlatformID    string                  `json:"platformId"`
	GameMode      string                  `json:"gameMode"`
	Participants  []activeGameParticipant `json:"participants"`
	GameID        int64                   `json:"gameId"`
	GameStartTime int64                   `json:"gameStartTime"` // Milliseconds, 0 while loading
	GameLength    int64                   `json:"gameLength"`    // Seconds
	MapID         int                     `json:"mapId"`
}

type activeGameParticipant struct {
	PUUID      string `json:"puuid"`
	RiotID     string `json:"riotId"`
	TeamID     int    `json:"teamId"`
	ChampionID int    `json:"championId"`
	Bot        bool   `json:"bot"`
}

var mapNames = map[int]string{
	11: "Summoner's Rift",
	12: "Howling Abyss",
	21: "Nexus Blitz",
	30: "Rings of Wrath",
}

func mapName(id int) string {
	if name, ok := mapNames[id]; ok {
		return name
	}
	return ""
}

func teamName(id int) string {
	switch id {
	case 100:
		return "Blue"
	case 200:
		return "Red"
	default:
		return ""
	}
}
