package store

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"
)

// newRandomID returns prefix-<suffix> where suffix is 8 chars of base32
// (lowercase, no padding). 8 chars base32 ~= 40 bits of space.
func newRandomID(prefix string) (string, error) {
	var b [5]byte // 40 bits -> 8 base32 chars
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	enc := base32.StdEncoding.WithPadding(base32.NoPadding)
	return prefix + "-" + strings.ToLower(enc.EncodeToString(b[:])), nil
}

// NewTaskID returns a fresh task id that does not collide with ids in db.
func NewTaskID(db *DB) (string, error) {
	for i := 0; i < 16; i++ {
		id, err := newRandomID("task")
		if err != nil {
			return "", err
		}
		if db == nil || !idExists(db, id) {
			return id, nil
		}
	}
	// 16 collisions in a 40-bit space means something else is wrong.
	return "", errors.New("unable to allocate unique task id")
}

func idExists(db *DB, id string) bool {
	for _, t := range db.Tasks {
		if t != nil && t.ID == id {
			return true
		}
	}
	return false
}
