package player

import (
	"crypto/md5"

	"github.com/google/uuid"
)

// OfflineUUID derives the identity vanilla servers give a user when no
// authentication happens: an MD5 name-based (version 3) UUID of
// "OfflinePlayer:<name>".
func OfflineUUID(name string) uuid.UUID {
	sum := md5.Sum([]byte("OfflinePlayer:" + name))
	sum[6] = sum[6]&0x0f | 0x30
	sum[8] = sum[8]&0x3f | 0x80
	return uuid.UUID(sum)
}
