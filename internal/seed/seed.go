// Package seed loads demo data through the match and message services so
// every match and message obeys the same rules as live traffic.
package seed

import (
	"context"
	"fmt"

	"github.com/oggyb/matchchat/internal/app"
	"github.com/oggyb/matchchat/internal/db"
	"github.com/oggyb/matchchat/internal/service/match"
	"github.com/oggyb/matchchat/internal/service/message"
)

// Summary counts what Demo created.
type Summary struct {
	Users    int
	Likes    int
	Matches  int
	Messages int
}

// Demo resets the database and Redis and creates n users. Redis is flushed
// because cached match sets would outlive the rows they mirror.
//
// Dataset:
//   - users 2k+1 and 2k+2 like each other (a match per pair)
//   - every user also likes the user two places ahead, one-way
//   - every matched pair exchanges two messages
func Demo(ctx context.Context, appCtx *app.AppContext, n int) (Summary, error) {
	users, err := db.SeedUsers(appCtx.DB, n)
	if err != nil {
		return Summary{}, err
	}
	if err := appCtx.RedisCache.Client.FlushDB(ctx).Err(); err != nil {
		return Summary{}, fmt.Errorf("flush redis: %w", err)
	}
	sum := Summary{Users: len(users)}

	matches := match.NewService(appCtx)
	messages := message.NewService(appCtx, matches)

	like := func(a, b db.User) error {
		res, err := matches.Like(ctx, a.ID, b.ID)
		if err != nil {
			return fmt.Errorf("like %d→%d: %w", a.ID, b.ID, err)
		}
		sum.Likes++
		if res.Matched {
			sum.Matches++
		}
		return nil
	}

	for i := 0; i+1 < len(users); i += 2 {
		a, b := users[i], users[i+1]
		if err := like(a, b); err != nil {
			return sum, err
		}
		if err := like(b, a); err != nil {
			return sum, err
		}
		for _, m := range []struct {
			from, to db.User
			text     string
		}{
			{a, b, fmt.Sprintf("Hi %s!", b.Name)},
			{b, a, fmt.Sprintf("Hey %s, nice to match.", a.Name)},
		} {
			if _, err := messages.Send(ctx, m.from.ID, m.to.ID, m.text); err != nil {
				return sum, fmt.Errorf("message %d→%d: %w", m.from.ID, m.to.ID, err)
			}
			sum.Messages++
		}
	}

	for i := 0; i+2 < len(users); i++ {
		if err := like(users[i], users[i+2]); err != nil {
			return sum, err
		}
	}

	appCtx.Logger.Info("seeded demo data",
		"users", sum.Users, "likes", sum.Likes, "matches", sum.Matches, "messages", sum.Messages)
	return sum, nil
}
