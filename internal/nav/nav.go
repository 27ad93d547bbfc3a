// Package nav tracks which screen the client is on and performs the
// redirects the request gateway and the auth guard ask for.
package nav

import "sync"

// Page is a top-level screen of the client.
type Page string

const (
	PageLogin  Page = "login"
	PageSignup Page = "signup"
	PageVerify Page = "verify"
	PageMain   Page = "main"
)

// IsAuthPage reports whether p is one of the pages reachable without a token.
func (p Page) IsAuthPage() bool {
	return p == PageLogin || p == PageSignup
}

// Listener is notified after every navigation.
type Listener func(from, to Page)

// Router holds the current page. The zero value is not usable; use NewRouter.
type Router struct {
	mu       sync.Mutex
	current  Page
	listener Listener
}

// NewRouter creates a router positioned at start.
func NewRouter(start Page) *Router {
	return &Router{current: start}
}

// OnNavigate registers the listener, replacing any previous one.
func (r *Router) OnNavigate(l Listener) {
	r.mu.Lock()
	r.listener = l
	r.mu.Unlock()
}

// Current returns the page the client is on.
func (r *Router) Current() Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Navigate moves to page and notifies the listener.
func (r *Router) Navigate(page Page) {
	r.mu.Lock()
	from := r.current
	r.current = page
	l := r.listener
	r.mu.Unlock()

	if l != nil {
		l(from, page)
	}
}

// RedirectToLogin navigates to the login page unless the client is already
// on login or signup, which would loop. It reports whether it moved.
func (r *Router) RedirectToLogin() bool {
	if r.Current().IsAuthPage() {
		return false
	}
	r.Navigate(PageLogin)
	return true
}

// Guard applies the startup rule: without a token every page except the
// auth and verify pages sends the user to login, and with a token the
// auth pages forward to main.
func (r *Router) Guard(hasToken bool) {
	cur := r.Current()
	switch {
	case !hasToken && !cur.IsAuthPage() && cur != PageVerify:
		r.Navigate(PageLogin)
	case hasToken && cur.IsAuthPage():
		r.Navigate(PageMain)
	}
}
