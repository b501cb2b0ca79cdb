package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RankedTeam is one sorted-set member read back from the cache.
type RankedTeam struct {
	TeamID int
	Points int
}

// LeaderboardCache mirrors the durable leaderboard table in a Redis sorted
// set per tournament. It is a best-effort accelerator: callers must treat
// every error as advisory and fall back to the database, and entries carry
// a TTL so a stale or crashed cache self-heals.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLeaderboardCache(opt *redis.Options, ttl time.Duration) *LeaderboardCache {
	return &LeaderboardCache{client: redis.NewClient(opt), ttl: ttl}
}

func (c *LeaderboardCache) key(tournamentID int) string {
	return fmt.Sprintf("leaderboard:%d", tournamentID)
}

// UpdateScore sets a team's absolute score.
func (c *LeaderboardCache) UpdateScore(ctx context.Context, tournamentID, teamID, points int) error {
	key := c.key(tournamentID)
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(points), Member: strconv.Itoa(teamID)})
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// IncrementScore adds points onto a team's cached score.
func (c *LeaderboardCache) IncrementScore(ctx context.Context, tournamentID, teamID, points int) error {
	key := c.key(tournamentID)
	pipe := c.client.TxPipeline()
	pipe.ZIncrBy(ctx, key, float64(points), strconv.Itoa(teamID))
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

// GetTop returns the highest-scoring teams, best first; limit <= 0 means
// all of them. A missing key returns an empty slice and no error so the
// caller knows to hit the DB.
func (c *LeaderboardCache) GetTop(ctx context.Context, tournamentID, limit int) ([]RankedTeam, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(tournamentID), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	teams := make([]RankedTeam, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		teamID, convErr := strconv.Atoi(member)
		if convErr != nil {
			continue
		}
		teams = append(teams, RankedTeam{TeamID: teamID, Points: int(z.Score)})
	}
	return teams, nil
}

// GetTeamRank returns a team's 1-based rank, or (0, nil) when the team is
// not in the cached set.
func (c *LeaderboardCache) GetTeamRank(ctx context.Context, tournamentID, teamID int) (int, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(tournamentID), strconv.Itoa(teamID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return int(rank) + 1, nil
}

// Clear drops a tournament's cached set, forcing the next read through the
// database.
func (c *LeaderboardCache) Clear(ctx context.Context, tournamentID int) error {
	return c.client.Del(ctx, c.key(tournamentID)).Err()
}

// Seed rebuilds the sorted set from authoritative scores in one shot.
func (c *LeaderboardCache) Seed(ctx context.Context, tournamentID int, teams []RankedTeam) error {
	key := c.key(tournamentID)
	members := make([]redis.Z, 0, len(teams))
	for _, t := range teams {
		members = append(members, redis.Z{Score: float64(t.Points), Member: strconv.Itoa(t.TeamID)})
	}

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
	}
	pipe.Expire(ctx, key, c.ttl)
	_, err := pipe.Exec(ctx)
	return err
}
