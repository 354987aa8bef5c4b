package sessions

import (
	"time"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// Session is a refresh session issued to an authority after login.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id,omitempty"`
	RefreshToken string    `bson:"refreshToken" json:"refreshToken,omitempty"`
	Authority    string    `bson:"authority" json:"authority"`
	ExpiresAt    time.Time `bson:"expiresAt" json:"expiresAt"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// digest names a bearer token in Redis keys so the token itself is never
// stored there.
func digest(token string) string {
	sum := sha3.Sum256([]byte(token))
	return base58.Encode(sum[:])
}
