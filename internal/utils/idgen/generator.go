package idgen

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

const MessagePrefix = "msg"

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewMessageIDAt returns a msg_* ULID stamped with the given time. IDs generated by one
// process sort in creation order, which lets storage break sent_at ties deterministically.
func NewMessageIDAt(at time.Time) string {
	entropyMu.Lock()
	id := ulid.MustNew(ulid.Timestamp(at), entropy)
	entropyMu.Unlock()
	return MessagePrefix + "_" + strings.ToLower(id.String())
}

// NewUUID returns a random UUID string for conversations, receipts and presence rows.
func NewUUID() string {
	return uuid.NewString()
}
