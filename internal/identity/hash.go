package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// saltedHash hashes value with the process-wide identity salt; IP and
// user-agent are never stored raw.
func saltedHash(salt, value string) string {
	if value == "" {
		return ""
	}
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(":"))
	h.Write([]byte(value))
	return hex.EncodeToString(h.Sum(nil))
}
