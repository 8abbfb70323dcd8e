package domain

import "time"

// FollowEdge es la arista dirigida "FollowerID sigue a FollowingID".
type FollowEdge struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type FollowCounts struct {
	Followers int64 `json:"followers_count"`
	Following int64 `json:"following_count"`
}

// FollowPage es una pagina de perfiles relacionados por el grafo.
type FollowPage struct {
	Profiles   []Profile `json:"profiles"`
	NextCursor string    `json:"next_cursor,omitempty"`
}
