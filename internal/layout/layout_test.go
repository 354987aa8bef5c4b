package layout

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiscriminator(t *testing.T) {
	sum := sha256.Sum256([]byte("account:Collection"))
	d := Discriminator("Collection")
	require.Equal(t, sum[:DiscriminatorSize], d[:])
	require.NotEqual(t, d, Discriminator("Document"))
	require.Equal(t, d, Discriminator("Collection"))
}
