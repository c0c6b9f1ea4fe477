package services

import "sort"

type LeaderboardEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ComputeLeaderboard ranks players by descending score. Hosts are left out
// and ties keep the order of the input, which callers pass in join order.
// The result is always rebuilt from scratch.
func ComputeLeaderboard(players []*Player) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		if p.Host {
			continue
		}
		entries = append(entries, LeaderboardEntry{ID: p.ID, Name: p.Name, Score: p.Score})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries
}
