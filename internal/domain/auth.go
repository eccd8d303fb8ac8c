package domain

// LoginMethod differentiates how a session was established.
type LoginMethod string

const (
	LoginMethodPassword  LoginMethod = "PASSWORD"
	LoginMethodAutoLogin LoginMethod = "AUTO_LOGIN"
)
