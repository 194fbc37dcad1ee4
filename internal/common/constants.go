package common

// SessionCookieName is the cookie that carries the signed session token on
// every authenticated API request.
const SessionCookieName = "pawkit_session"
