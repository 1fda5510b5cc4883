package session

import (
	"net/http"
	"time"
)

// CookieAttributes holds the attributes sent with a session cookie
type CookieAttributes struct {
	Path     string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
	// MaxAge in seconds; a negative value asks the browser to drop the cookie
	MaxAge  int
	Expires time.Time
}

// Cookie is a framework-agnostic session cookie
type Cookie struct {
	Name       string
	Value      string
	Attributes CookieAttributes
}

// HTTP converts the cookie for use with http.SetCookie
func (c Cookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Attributes.Path,
		Secure:   c.Attributes.Secure,
		HttpOnly: c.Attributes.HTTPOnly,
		SameSite: c.Attributes.SameSite,
		MaxAge:   c.Attributes.MaxAge,
		Expires:  c.Attributes.Expires,
	}
}

func (m *Manager) cookieAttributes() CookieAttributes {
	return CookieAttributes{
		Path:     "/",
		Secure:   m.secure,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SessionCookie builds the cookie carrying sess
func (m *Manager) SessionCookie(sess *Session) Cookie {
	attrs := m.cookieAttributes()
	attrs.Expires = sess.ExpiresAt
	attrs.MaxAge = int(sess.ExpiresAt.Sub(m.now()).Seconds())
	if attrs.MaxAge <= 0 {
		attrs.MaxAge = -1
	}

	return Cookie{
		Name:       m.cookieName,
		Value:      sess.ID,
		Attributes: attrs,
	}
}

// BlankSessionCookie builds a cookie that clears the session cookie
func (m *Manager) BlankSessionCookie() Cookie {
	attrs := m.cookieAttributes()
	attrs.MaxAge = -1
	attrs.Expires = time.Unix(0, 0).UTC()

	return Cookie{
		Name:       m.cookieName,
		Value:      "",
		Attributes: attrs,
	}
}
