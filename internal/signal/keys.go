package signal

import (
	"fmt"
	"strconv"
	"strings"
)

// FlattenKey renders one leaf occurrence's row key: "uuid" for a scalar
// leaf occurrence, "uuid_i" for the i'th element of a repeated leaf.
func FlattenKey(uuid string, idx int32, hasIdx bool) string {
	if !hasIdx {
		return uuid
	}
	return fmt.Sprintf("%s_%d", uuid, idx)
}

// SplitKey reverses FlattenKey.
func SplitKey(key string) (uuid string, idx int32, hasIdx bool) {
	i := strings.LastIndexByte(key, '_')
	if i < 0 {
		return key, 0, false
	}
	n, err := strconv.ParseInt(key[i+1:], 10, 32)
	if err != nil {
		return key, 0, false
	}
	return key[:i], int32(n), true
}
