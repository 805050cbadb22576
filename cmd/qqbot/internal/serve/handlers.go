package serve

import (
	"context"
	"fmt"
	"strings"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/callback"
	"github.com/chewangneko/qqcallback/pkg/usage"
)

// DemoOptions tunes the built-in command set.
type DemoOptions struct {
	Prefixes   []string
	AvatarAPI  string
	AvatarSize int
}

type demoCommand struct {
	names    []string
	help     string
	body     callback.HandlerFunc
	restrict []audience.Kind
}

// NewDemoSession returns the commands served by `qqbot serve`.
func NewDemoSession(opts DemoOptions) *callback.Session {
	commands := demoCommands(opts)

	s := callback.NewSession()
	for _, c := range commands {
		bindOpts := prefixOpts(opts)
		if len(c.restrict) > 0 {
			bindOpts = append(bindOpts, callback.WithRestrict(c.restrict...))
		}
		s.Bind(c.names, c.body, bindOpts...)
	}
	s.Bind([]string{"help"}, helpHandler(commands), prefixOpts(opts)...)
	return s
}

func prefixOpts(opts DemoOptions) []callback.BindOption {
	if len(opts.Prefixes) == 0 {
		return nil
	}
	return []callback.BindOption{callback.WithPrefixes(opts.Prefixes...)}
}

func demoCommands(opts DemoOptions) []demoCommand {
	return []demoCommand{
		{names: []string{"ping"}, help: "check the bot is alive", body: pingHandler},
		{names: []string{"echo"}, help: "repeat the text after the command", body: echoHandler},
		// Before "me": prefix matching would let "me" swallow "members".
		{
			names:    []string{"members"},
			help:     "list recorded members of this group",
			body:     membersHandler,
			restrict: []audience.Kind{audience.Channel, audience.Direct},
		},
		{names: []string{"me"}, help: "show your user record", body: meHandler},
		{names: []string{"avatar"}, help: "send your avatar", body: avatarHandler(opts)},
		{names: []string{"usage"}, help: "show host CPU and memory", body: usageHandler},
	}
}

func pingHandler(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
	return true, cb.Send(ctx, "pong")
}

func echoHandler(ctx context.Context, cb *callback.Callback, params []string) (bool, error) {
	if len(params) == 0 {
		return true, cb.Send(ctx, "usage: echo <text>")
	}
	return true, cb.Send(ctx, strings.Join(params, " "))
}

func meHandler(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
	db := cb.Database()
	if db == nil {
		return true, cb.Send(ctx, "user store is disabled")
	}
	user, err := db.GetUserInfo(ctx, cb)
	if err != nil {
		return false, err
	}
	if user == nil {
		return true, cb.Send(ctx, "no record yet")
	}
	return true, cb.Send(ctx, fmt.Sprintf("#%d %s (%s, %s messages)",
		user.UserID, user.OpenID, cb.Audience(), usage.GroupedInt(user.MessageNumber)))
}

func avatarHandler(opts DemoOptions) callback.HandlerFunc {
	return func(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
		var avatarOpts []callback.AvatarOption
		if opts.AvatarAPI != "" {
			avatarOpts = append(avatarOpts, callback.WithAvatarAPI(opts.AvatarAPI))
		}
		if opts.AvatarSize > 0 {
			avatarOpts = append(avatarOpts, callback.WithAvatarSize(opts.AvatarSize))
		}
		url := cb.HeadURL(avatarOpts...)
		if url == "" {
			return true, cb.Send(ctx, "no avatar available")
		}
		return true, cb.SendImage(ctx, url, "")
	}
}

func usageHandler(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
	u, err := cb.Usage(ctx)
	if err != nil {
		return false, err
	}
	return true, cb.Send(ctx, u.String())
}

func membersHandler(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
	db := cb.Database()
	if db == nil {
		return true, cb.Send(ctx, "user store is disabled")
	}
	users, err := db.GetGroupUsers(ctx, cb)
	if err != nil {
		return false, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s members recorded", usage.GroupedInt(len(users)))
	for _, u := range users {
		fmt.Fprintf(&b, "\n#%d %s", u.UserID, u.OpenID)
	}
	return true, cb.Send(ctx, b.String())
}

func helpHandler(commands []demoCommand) callback.HandlerFunc {
	return func(ctx context.Context, cb *callback.Callback, _ []string) (bool, error) {
		var b strings.Builder
		b.WriteString("commands:")
		for _, c := range commands {
			if restricted(c.restrict, cb.Audience()) {
				continue
			}
			fmt.Fprintf(&b, "\n%s - %s", strings.Join(c.names, ", "), c.help)
		}
		return true, cb.Send(ctx, b.String())
	}
}

func restricted(kinds []audience.Kind, kind audience.Kind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}
