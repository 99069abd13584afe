// Package bucket provides deterministic traffic-split bucketing for visitors.
// It hashes the visitor IP to a bucket in 1..100 so that the same IP always
// lands in the same bucket: a "random 25%" rule carves out a stable quarter
// of the traffic rather than flipping a coin per request.
package bucket

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Buckets is the number of traffic-split buckets.
const Buckets = 100

// Assign returns a deterministic bucket (1-100) for the given visitor IP.
// The same ip + salt combination always returns the same bucket. The salt is
// optional; leaving it empty keeps buckets stable across processes and
// restarts, which is what repeat-visitor traffic splitting wants.
func Assign(ip, salt string) int {
	key := ip
	if salt != "" {
		key = ip + ":" + salt
	}
	return int(xxhash.Sum64String(key)%Buckets) + 1
}

// AssignString returns Assign formatted for the condition matcher, which
// compares everything as strings.
func AssignString(ip, salt string) string {
	return strconv.Itoa(Assign(ip, salt))
}
