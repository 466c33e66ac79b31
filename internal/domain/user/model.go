package user

// Principal identifies the authenticated caller.
type Principal struct {
	UserID string
	Email  string
}
