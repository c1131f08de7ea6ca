package auth

import (
	"net/http"

	"careerquiz/crypto"
	"careerquiz/models"

	"github.com/gorilla/sessions"
)

const SessionName = "careerquiz-session"

// SessionManager keeps the SessionContext in a signed and encrypted cookie.
type SessionManager struct {
	store *sessions.CookieStore
}

func NewSessionManager(keys crypto.Keys, secure bool) *SessionManager {
	store := sessions.NewCookieStore(keys.SessionAuth, keys.SessionEncryption)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   0, // browser-session cookie
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store}
}

// Get returns the session context, or false for an anonymous or tampered session.
func (m *SessionManager) Get(r *http.Request) (models.SessionContext, bool) {
	session, err := m.store.Get(r, SessionName)
	if err != nil {
		return models.SessionContext{}, false
	}
	username, _ := session.Values["user"].(string)
	roleValue, _ := session.Values["role"].(string)
	role, ok := models.ParseRole(roleValue)
	if username == "" || !ok {
		return models.SessionContext{}, false
	}
	return models.SessionContext{Username: username, Role: role}, true
}

func (m *SessionManager) Set(w http.ResponseWriter, r *http.Request, sc models.SessionContext) error {
	// A decode error still yields a fresh session, which is what we want here.
	session, _ := m.store.Get(r, SessionName)
	session.Values["user"] = sc.Username
	session.Values["role"] = string(sc.Role)
	return session.Save(r, w)
}

func (m *SessionManager) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, SessionName)
	session.Values = make(map[interface{}]interface{})
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
