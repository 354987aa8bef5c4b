// Package layout holds what the fixed record layouts share.
package layout

import "crypto/sha256"

// DiscriminatorSize is the length of the type tag at the start of a record.
const DiscriminatorSize = 8

// Discriminator is the type tag of the record type called name: the first
// eight bytes of sha256("account:<name>").
func Discriminator(name string) [DiscriminatorSize]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	return [DiscriminatorSize]byte(sum[:DiscriminatorSize])
}
