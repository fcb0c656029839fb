package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateOrderID returns a human-readable order number in the form
// ORD-######-####. Uniqueness is enforced by the database constraint on the
// column; collisions at this keyspace are retried by the caller.
func GenerateOrderID() string {
	return fmt.Sprintf("ORD-%06d-%04d", randomN(1000000), randomN(10000))
}

func randomN(max int64) int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0
	}
	return n.Int64()
}
