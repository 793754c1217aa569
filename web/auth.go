package web

import (
	"crypto/subtle"
	"github.com/goji/httpauth"
	"github.com/gorilla/securecookie"
	"log"
	"net/http"
	"time"
)

const (
	sessionCookie = "calweb_session"
	sessionAge    = 12 * time.Hour
)

// Single user login: basic auth once, then a signed and encrypted session cookie holding the user name.
type authenticator struct {
	user     string
	password string
	sc       *securecookie.SecureCookie
	login    func(http.Handler) http.Handler
}

func newAuthenticator(user, password string) *authenticator {
	a := &authenticator{user: user, password: password}
	a.sc = securecookie.New(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32))
	a.sc.MaxAge(int(sessionAge.Seconds()))
	a.login = httpauth.BasicAuth(httpauth.AuthOptions{Realm: "calibration report", AuthFunc: a.check})
	return a
}

func (a *authenticator) check(user, password string, r *http.Request) bool {
	ok := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1 &&
		subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !ok {
		log.Printf("login failed for %q from %s", user, r.RemoteAddr)
	}
	return ok
}

// user name from a valid session cookie
func (a *authenticator) session(r *http.Request) (user string, ok bool) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return "", false
	}
	if err = a.sc.Decode(sessionCookie, cookie.Value, &user); err != nil {
		return "", false
	}
	return user, user == a.user
}

// Middleware passes requests with a session straight through, otherwise it asks for
// credentials and starts a session once they are accepted.
func (a *authenticator) Middleware(next http.Handler) http.Handler {
	login := a.login(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if value, err := a.sc.Encode(sessionCookie, a.user); err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    value,
				Path:     "/",
				MaxAge:   int(sessionAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		} else {
			log.Println("session cookie:", err)
		}
		next.ServeHTTP(w, r)
	}))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := a.session(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		login.ServeHTTP(w, r)
	})
}
