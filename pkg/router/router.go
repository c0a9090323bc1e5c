// Package router dispatches telegram updates to handlers the way an HTTP
// router dispatches requests: by command, callback prefix or update kind,
// through per-branch middlewares.
package router

import (
	"context"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type HandlerFunc func(ctx context.Context, u *tgbotapi.Update) error

// MiddlewareFunc runs before the handler. A non-nil context replaces the
// current one, an error stops the chain.
type MiddlewareFunc func(ctx context.Context, u *tgbotapi.Update) (context.Context, error)

// CloserFunc runs after the handler with its error, whatever happened.
type CloserFunc func(ctx context.Context, u *tgbotapi.Update, err error)

const (
	KindCommand    = "command"
	KindCallback   = "callback"
	KindReply      = "reply"
	KindMessage    = "message"
	KindChatMember = "chat_member"
	KindUnknown    = "unknown"
)

type routes struct {
	mutex      sync.RWMutex
	commands   map[string]HandlerFunc
	callbacks  map[string]HandlerFunc
	reply      HandlerFunc
	chatMember HandlerFunc
	global     []MiddlewareFunc
	closers    []CloserFunc
}

type Router struct {
	routes *routes
	before []MiddlewareFunc
}

func New() *Router {
	return &Router{
		routes: &routes{
			commands:  map[string]HandlerFunc{},
			callbacks: map[string]HandlerFunc{},
		},
	}
}

// Branch returns a router sharing the routes of r, middlewares added to the
// branch only apply to handlers registered on it.
func (r *Router) Branch() *Router {
	return &Router{
		routes: r.routes,
		before: append([]MiddlewareFunc{}, r.before...),
	}
}

func (r *Router) Before(middleware MiddlewareFunc) {
	r.before = append(r.before, middleware)
}

// Use registers a middleware which runs for every update before routing,
// closers see the context it returns.
func (r *Router) Use(middleware MiddlewareFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.global = append(r.routes.global, middleware)
}

// AddCloser registers a closer for every update, whichever branch handles it.
func (r *Router) AddCloser(closer CloserFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.closers = append(r.routes.closers, closer)
}

func (r *Router) Command(name string, handler HandlerFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.commands[name] = r.wrap(handler)
}

func (r *Router) Callback(prefix string, handler HandlerFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.callbacks[prefix] = r.wrap(handler)
}

// Reply handles text messages which answer another message.
func (r *Router) Reply(handler HandlerFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.reply = r.wrap(handler)
}

func (r *Router) ChatMember(handler HandlerFunc) {
	r.routes.mutex.Lock()
	defer r.routes.mutex.Unlock()
	r.routes.chatMember = r.wrap(handler)
}

func (r *Router) wrap(handler HandlerFunc) HandlerFunc {
	before := append([]MiddlewareFunc{}, r.before...)
	return func(ctx context.Context, u *tgbotapi.Update) error {
		for _, m := range before {
			newCtx, err := m(ctx, u)
			if err != nil {
				return err
			}

			if newCtx != nil {
				ctx = newCtx
			}
		}

		return handler(ctx, u)
	}
}

// Dispatch routes u and returns the kind of the update. Updates nobody
// handles are dropped silently.
func (r *Router) Dispatch(ctx context.Context, u *tgbotapi.Update) (string, error) {
	kind, handler := r.match(u)

	r.routes.mutex.RLock()
	global := r.routes.global
	closers := r.routes.closers
	r.routes.mutex.RUnlock()

	var err error
	for _, m := range global {
		var newCtx context.Context
		newCtx, err = m(ctx, u)
		if err != nil {
			break
		}

		if newCtx != nil {
			ctx = newCtx
		}
	}

	if err == nil && handler != nil {
		err = handler(ctx, u)
	}

	for _, c := range closers {
		c(ctx, u, err)
	}

	return kind, err
}

func (r *Router) match(u *tgbotapi.Update) (string, HandlerFunc) {
	r.routes.mutex.RLock()
	defer r.routes.mutex.RUnlock()

	kind := Kind(u)
	switch kind {
	case KindCommand:
		return kind, r.routes.commands[u.Message.Command()]

	case KindCallback:
		for prefix, handler := range r.routes.callbacks {
			if strings.HasPrefix(u.CallbackQuery.Data, prefix) {
				return kind, handler
			}
		}

	case KindReply:
		return kind, r.routes.reply

	case KindChatMember:
		return kind, r.routes.chatMember
	}

	return kind, nil
}

// Kind classifies an update the same way Dispatch does.
func Kind(u *tgbotapi.Update) string {
	switch {
	case u.Message != nil && u.Message.IsCommand():
		return KindCommand
	case u.CallbackQuery != nil:
		return KindCallback
	case u.Message != nil && u.Message.ReplyToMessage != nil:
		return KindReply
	case u.Message != nil:
		return KindMessage
	case u.ChatMember != nil:
		return KindChatMember
	}

	return KindUnknown
}

// Sender returns the account which caused the update, or nil.
func Sender(u *tgbotapi.Update) *tgbotapi.User {
	switch {
	case u.Message != nil:
		return u.Message.From
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From
	case u.ChatMember != nil:
		return u.ChatMember.NewChatMember.User
	}

	return nil
}

// ChatID returns the chat the update belongs to, or 0.
func ChatID(u *tgbotapi.Update) int64 {
	switch {
	case u.Message != nil:
		return u.Message.Chat.ID
	case u.CallbackQuery != nil && u.CallbackQuery.Message != nil:
		return u.CallbackQuery.Message.Chat.ID
	case u.ChatMember != nil:
		return u.ChatMember.Chat.ID
	}

	return 0
}
