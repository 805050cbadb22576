package callback

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
)

func reply(text string) HandlerFunc {
	return func(ctx context.Context, cb *Callback, _ []string) (bool, error) {
		return true, cb.Send(ctx, text)
	}
}

func TestDispatchPingPong(t *testing.T) {
	ctx := context.Background()
	s := NewSession().Bind([]string{"ping"}, reply("pong"))

	for _, content := range []string{"/ping", "ping"} {
		tr := &fakeTransport{}
		ok, err := s.Dispatch(ctx, groupCallback(t, content, tr))
		require.NoError(t, err)
		assert.True(t, ok)
		require.Len(t, tr.sent, 1)
		assert.Equal(t, "pong", tr.sent[0].msg.Content)
	}

	tr := &fakeTransport{}
	ok, err := s.Dispatch(ctx, groupCallback(t, "hello", tr))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, tr.calls())
}

func TestDispatchFirstMatchWins(t *testing.T) {
	var order []string
	track := func(name string, result bool) HandlerFunc {
		return func(context.Context, *Callback, []string) (bool, error) {
			order = append(order, name)
			return result, nil
		}
	}

	s := NewSession().
		Bind([]string{"ping"}, track("declines", false)).
		Bind([]string{"ping"}, track("accepts", true)).
		Bind([]string{"ping"}, track("never", true))

	ok, err := s.Dispatch(context.Background(), groupCallback(t, "/ping", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"declines", "accepts"}, order)
}

func TestDispatchRoutesToMatchingCommand(t *testing.T) {
	var order []string
	track := func(name string) HandlerFunc {
		return func(context.Context, *Callback, []string) (bool, error) {
			order = append(order, name)
			return true, nil
		}
	}

	s := NewSession().
		Bind([]string{"ping"}, track("ping")).
		Bind([]string{"pong"}, track("pong"))

	ok, err := s.Dispatch(context.Background(), groupCallback(t, "/pong", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"pong"}, order)
}

func TestDispatchParams(t *testing.T) {
	var got []string
	s := NewSession().Bind([]string{"echo"}, func(_ context.Context, _ *Callback, params []string) (bool, error) {
		got = params
		return true, nil
	})

	ok, err := s.Dispatch(context.Background(), groupCallback(t, "/echo hello  world", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"hello", "world"}, got)

	_, err = s.Dispatch(context.Background(), groupCallback(t, "echo", nil))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRestrictedAudience(t *testing.T) {
	called := false
	s := NewSession().Bind([]string{"members"}, func(context.Context, *Callback, []string) (bool, error) {
		called = true
		return true, nil
	}, WithRestrict(audience.Group))

	ok, err := s.Dispatch(context.Background(), groupCallback(t, "/members", nil))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)

	ok, err = s.Dispatch(context.Background(), directCallback(t, "/members", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, called)
}

func TestCustomPrefixes(t *testing.T) {
	s := NewSession().Bind([]string{"roll"}, reply("4"), WithPrefixes("!", "#"))

	for content, want := range map[string]bool{"!roll": true, "#roll": true, "/roll": false, "roll": false} {
		ok, err := s.Dispatch(context.Background(), groupCallback(t, content, &fakeTransport{}))
		require.NoError(t, err)
		assert.Equal(t, want, ok, content)
	}
}

func TestHandlerInvokeWithoutCallback(t *testing.T) {
	h := Handler{Commands: []string{"ping"}, Body: reply("pong")}
	_, err := h.Invoke(context.Background(), nil)

	var be *boterr.Error
	require.True(t, errors.As(err, &be))
	assert.Equal(t, boterr.KindBindCommand, be.Kind)
	assert.Equal(t, 100, be.Code)

	_, err = NewSession().Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, boterr.ErrBindCommand)

	_, err = Handler{Commands: []string{"ping"}}.Invoke(context.Background(), groupCallback(t, "ping", nil))
	assert.ErrorIs(t, err, boterr.ErrBindCommand)
}

func TestReduceSkipsHandlersWithoutBody(t *testing.T) {
	list := HandlerList{
		{Commands: []string{"ping"}},
		{Commands: []string{"ping"}, Body: reply("pong")},
	}
	tr := &fakeTransport{}

	ok, err := groupCallback(t, "ping", tr).Reduce(context.Background(), list)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, tr.calls())

	_, err = groupCallback(t, "ping", tr).Reduce(context.Background(), nil)
	assert.ErrorIs(t, err, boterr.ErrBindCommand)
}

func TestReduceAsUsesTarget(t *testing.T) {
	var seen string
	s := NewSession().Bind([]string{"who"}, func(_ context.Context, cb *Callback, _ []string) (bool, error) {
		seen = cb.UserOpenID()
		return true, nil
	})

	source := groupCallback(t, "hello", nil)
	target := directCallback(t, "/who", nil)

	ok, err := source.ReduceAs(context.Background(), s, target)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "user-9", seen)

	ok, err = source.ReduceAs(context.Background(), s, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHandlerErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	reached := false
	s := NewSession().
		Bind([]string{"fail"}, func(context.Context, *Callback, []string) (bool, error) {
			return false, boom
		}).
		Bind([]string{"fail"}, func(context.Context, *Callback, []string) (bool, error) {
			reached = true
			return true, nil
		})

	ok, err := s.Dispatch(context.Background(), groupCallback(t, "fail", nil))
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.False(t, reached)
}

func TestFusionAndMerge(t *testing.T) {
	base := NewSession().Bind([]string{"a"}, reply("a"))
	extra := NewSession().Bind([]string{"b"}, reply("b")).Bind([]string{"c"}, reply("c"))

	fused := base.Fusion(extra, nil)
	require.Len(t, fused, 3)
	var names []string
	for _, h := range fused {
		names = append(names, strings.Join(h.Commands, ","))
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	merged := base.Merge(extra)
	assert.Equal(t, 3, merged.Len())
	assert.Equal(t, 1, base.Len())

	var nilSession *Session
	assert.Zero(t, nilSession.Len())
	assert.Len(t, nilSession.Fusion(extra), 2)
}
