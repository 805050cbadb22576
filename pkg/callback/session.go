package callback

import (
	"context"

	"github.com/chewangneko/qqcallback/pkg/audience"
	"github.com/chewangneko/qqcallback/pkg/boterr"
)

// DefaultPrefixes is used when a binding names no prefixes: "/ping" and a
// bare "ping" both trigger.
var DefaultPrefixes = []string{"/", ""}

// HandlerFunc runs a matched command. params holds the arguments after the
// command word (never nil). Returning false lets later handlers try.
type HandlerFunc func(ctx context.Context, cb *Callback, params []string) (bool, error)

// Handler is one command binding.
type Handler struct {
	Commands []string
	Prefixes []string
	// Restrict lists the audiences the handler refuses.
	Restrict []audience.Kind
	Body     HandlerFunc
}

func (h Handler) restricted(kind audience.Kind) bool {
	for _, r := range h.Restrict {
		if r == kind {
			return true
		}
	}
	return false
}

func (h Handler) prefixes() []string {
	if len(h.Prefixes) == 0 {
		return DefaultPrefixes
	}
	return h.Prefixes
}

// Invoke matches cb against every prefix+command pair, prefixes outermost,
// and runs Body on the first match. It reports false without calling Body
// when cb's audience is restricted or nothing matches.
func (h Handler) Invoke(ctx context.Context, cb *Callback) (bool, error) {
	if cb == nil {
		return false, boterr.BindCommand("handler invoked without a callback", 100)
	}
	if h.Body == nil {
		return false, boterr.BindCommand("handler has no body", 100)
	}
	if h.restricted(cb.Audience()) {
		return false, nil
	}

	for _, prefix := range h.prefixes() {
		for _, command := range h.Commands {
			parsed := cb.Command(prefix+command, true)
			if !parsed.IsCommand {
				continue
			}
			params := parsed.Args
			if params == nil {
				params = []string{}
			}
			return h.Body(ctx, cb, params)
		}
	}
	return false, nil
}

// Router is anything that yields handlers in match order.
type Router interface {
	Handlers() []Handler
}

// HandlerList is a plain ordered Router.
type HandlerList []Handler

func (l HandlerList) Handlers() []Handler { return l }

// Session holds handlers in registration order, which is also match order.
// Build it once at startup; it is not safe to bind while dispatching.
type Session struct {
	handlers []Handler
}

func NewSession() *Session {
	return &Session{}
}

type BindOption func(*Handler)

// WithPrefixes replaces DefaultPrefixes for one binding.
func WithPrefixes(prefixes ...string) BindOption {
	return func(h *Handler) { h.Prefixes = prefixes }
}

// WithRestrict keeps the binding from firing for the given audiences.
func WithRestrict(kinds ...audience.Kind) BindOption {
	return func(h *Handler) { h.Restrict = kinds }
}

// Bind registers body for commands and returns s for chaining.
func (s *Session) Bind(commands []string, body HandlerFunc, opts ...BindOption) *Session {
	h := Handler{
		Commands: append([]string(nil), commands...),
		Body:     body,
	}
	for _, opt := range opts {
		opt(&h)
	}
	return s.Add(h)
}

// Add appends a prepared handler.
func (s *Session) Add(h Handler) *Session {
	s.handlers = append(s.handlers, h)
	return s
}

// Handlers returns a copy of the bound handlers in match order.
func (s *Session) Handlers() []Handler {
	if s == nil {
		return nil
	}
	out := make([]Handler, len(s.handlers))
	copy(out, s.handlers)
	return out
}

func (s *Session) Len() int {
	if s == nil {
		return 0
	}
	return len(s.handlers)
}

// Fusion concatenates s's handlers with those of others, s first. Nil
// sessions are skipped.
func (s *Session) Fusion(others ...*Session) []Handler {
	out := s.Handlers()
	for _, o := range others {
		if o == nil {
			continue
		}
		out = append(out, o.handlers...)
	}
	return out
}

// Merge is Fusion wrapped in a new Session.
func (s *Session) Merge(others ...*Session) *Session {
	return &Session{handlers: s.Fusion(others...)}
}

// Dispatch runs cb through s. See Callback.Reduce.
func (s *Session) Dispatch(ctx context.Context, cb *Callback) (bool, error) {
	if cb == nil {
		return false, boterr.BindCommand("dispatch without a callback", 100)
	}
	return cb.Reduce(ctx, s)
}

// Reduce tries r's handlers in order and stops at the first one that reports
// true. Handlers without a body are skipped. Errors from a handler body are
// returned unchanged and end the scan.
func (c *Callback) Reduce(ctx context.Context, r Router) (bool, error) {
	return c.ReduceAs(ctx, r, nil)
}

// ReduceAs is Reduce on behalf of target; a nil target means c.
func (c *Callback) ReduceAs(ctx context.Context, r Router, target *Callback) (bool, error) {
	if r == nil {
		return false, boterr.BindCommand("router must not be nil", 100)
	}
	if target == nil {
		target = c
	}

	for _, h := range r.Handlers() {
		if h.Body == nil {
			continue
		}
		ok, err := h.Invoke(ctx, target)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
