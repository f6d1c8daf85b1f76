// Package session provides server-side HTTP sessions for fiber, backed by
// redis or process memory.
//
// Usage (middleware):
//
//	app.Use(session.NewManager(store, session.DefaultOptions()).Middleware())
//
// Usage (handler):
//
//	sess := session.FromCtx(c)
//	sess.Login(session.Data{UserID: user.ID, Username: user.Username})
package session

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const localsKey = "session"

// Data is what a session remembers about its visitor.
type Data struct {
	UserID         uint   `json:"userId,omitempty"`
	Username       string `json:"username,omitempty"`
	UserRole       string `json:"userRole,omitempty"`
	UserEmail      string `json:"userEmail,omitempty"`
	CurrentOrderID uint   `json:"currentOrderId,omitempty"`
}

// Options configures the session cookie and lifetime.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// DefaultOptions returns the sid cookie with a 30 minute inactivity timeout.
func DefaultOptions() Options {
	return Options{CookieName: "sid", TTL: 30 * time.Minute}
}

// Session is an in-request session handle.
type Session struct {
	id        string
	staleID   string
	data      Data
	live      bool
	changed   bool
	destroyed bool
}

// ID returns the session id, empty until the session is first saved.
func (s *Session) ID() string { return s.id }

// Data returns a copy of the session values.
func (s *Session) Data() Data { return s.data }

// Authenticated reports whether a user is logged in on this session.
func (s *Session) Authenticated() bool { return s.data.UserID != 0 }

// Login replaces the session values and issues a fresh session id.
func (s *Session) Login(data Data) {
	if s.live && s.staleID == "" {
		s.staleID = s.id
	}
	s.id = ""
	s.data = data
	s.changed = true
	s.destroyed = false
}

// SetCurrentOrder remembers the order being checked out. Zero clears it.
func (s *Session) SetCurrentOrder(orderID uint) {
	s.data.CurrentOrderID = orderID
	s.changed = true
}

// Destroy ends the session (logout).
func (s *Session) Destroy() {
	s.data = Data{}
	s.destroyed = true
	s.changed = false
}

// Manager loads and persists sessions around each request.
type Manager struct {
	store Store
	opts  Options
}

// NewManager creates a new Manager.
func NewManager(store Store, opts Options) *Manager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultOptions().CookieName
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultOptions().TTL
	}
	return &Manager{store: store, opts: opts}
}

// Middleware attaches the visitor's session to the request and persists it
// once the handler chain has run. Live sessions have their timeout extended.
func (m *Manager) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		sess := &Session{}
		if id := c.Cookies(m.opts.CookieName); id != "" {
			data, err := m.store.Load(ctx, id)
			switch {
			case err == nil:
				sess.id, sess.data, sess.live = id, *data, true
			case !errors.Is(err, ErrNotFound):
				log.Printf("Failed to load session: %v", err)
			}
		}
		c.Locals(localsKey, sess)

		err := c.Next()
		m.persist(ctx, c, sess)
		return err
	}
}

func (m *Manager) persist(ctx context.Context, c *fiber.Ctx, sess *Session) {
	if sess.staleID != "" {
		if err := m.store.Delete(ctx, sess.staleID); err != nil {
			log.Printf("Failed to delete session: %v", err)
		}
	}
	switch {
	case sess.destroyed:
		if sess.live {
			if err := m.store.Delete(ctx, sess.id); err != nil {
				log.Printf("Failed to delete session: %v", err)
			}
		}
		m.setCookie(c, "", time.Unix(0, 0))
	case sess.changed:
		if sess.id == "" {
			sess.id = uuid.NewString()
		}
		if err := m.store.Save(ctx, sess.id, &sess.data, m.opts.TTL); err != nil {
			log.Printf("Failed to save session: %v", err)
			return
		}
		m.setCookie(c, sess.id, time.Time{})
	case sess.live:
		if err := m.store.Touch(ctx, sess.id, m.opts.TTL); err != nil {
			log.Printf("Failed to refresh session: %v", err)
		}
	}
}

// setCookie writes the session cookie. A zero expiry keeps it a browser-session cookie.
func (m *Manager) setCookie(c *fiber.Ctx, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   m.opts.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// FromCtx returns the request's session. Outside the middleware it returns
// an empty session that is never saved.
func FromCtx(c *fiber.Ctx) *Session {
	if s, ok := c.Locals(localsKey).(*Session); ok {
		return s
	}
	return &Session{}
}
