package auth

// Identity is the decoded bearer token. It is passed explicitly to every
// operation that needs to know who is acting.
type Identity struct {
	UserID   uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (i Identity) IsZero() bool {
	return i.UserID == 0
}
