package domain

// Token is a ledger row for one issued access/refresh pair. Rows are revoked,
// never deleted, except when their owner is deleted.
type Token struct {
	ID           int64
	UserEmail    string
	AccessToken  string
	RefreshToken string
	Revoked      bool
}

// TokenPair is what a successful authentication or refresh hands back.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
