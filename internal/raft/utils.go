package raft

import (
	"math/rand"
	"time"
)

// Majority returns the smallest number of affirmative responses, counting the node's own, that exceeds half of a
// cluster made of peers other nodes plus this one.
func Majority(peers int) int {
	return (peers+1)/2 + 1
}

// RandomElectionTimeout picks a timeout uniformly from [min, max]. A fresh value is drawn on every election tick so
// that followers which lost their leader at the same moment are unlikely to become candidates together.
func RandomElectionTimeout(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}
