package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/communitywatch/communitywatch/core"
)

// Key prefixes for different data types
const (
	issueRecordPrefix     = "issrec"
	issueRecordDatePrefix = "issrecd"
	issueIDSeq            = "issrecseq"
	userRecordPrefix      = "usrrec"
	userUsernamePrefix    = "usrname"
	userIDSeq             = "usrrecseq"
)

// makeIssueKey generates a key for an issue by ID.
func makeIssueKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", issueRecordPrefix, id))
}

// indexMicros converts a timestamp to the unsigned micros stored in date
// index keys. Pre-epoch times (including the zero time.Time) have negative
// UnixMicro values that would wrap to huge unsigned keys and sort past every
// real entry, so they clamp to zero and sort first instead.
func indexMicros(timestamp time.Time) uint64 {
	micros := timestamp.UnixMicro()
	if micros < 0 {
		return 0
	}
	return uint64(micros)
}

// makeIssueDateKey generates a composite key for the date index.
// Format: prefix:timestamp:id
func makeIssueDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := issueRecordDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], indexMicros(timestamp))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialIssueDateKey generates a partial key for date range queries.
// Format: prefix:timestamp
func makePartialIssueDateKey(timestamp time.Time) []byte {
	prefix := issueRecordDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], indexMicros(timestamp))
	return buf
}

// makeUserKey generates a key for a user by ID.
func makeUserKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", userRecordPrefix, id))
}

// makeUsernameKey generates a key for user lookup by username.
// Format: prefix:username
func makeUsernameKey(username string) []byte {
	return []byte(fmt.Sprintf("%s:%s", userUsernamePrefix, username))
}
