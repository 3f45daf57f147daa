package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is an identity record: the role granted to a subject of the external
// identity provider. Role holds the integer rank of an auth.Role and is decoded
// by the identity service, which rejects unknown values.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID          string     `bun:"id,pk,type:uuid"`
	Subject     string     `bun:"subject,notnull,unique"` // provider-issued "sub" claim
	Role        int        `bun:"role,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull,default:current_timestamp"`
	LastLoginAt *time.Time `bun:"last_login_at"`
}
