// Package invoice derives per-order deposit tags.
//
// The tags are deterministic identifiers, not spendable chain addresses: they
// do not decode under the address package. Replacing them with real key
// derivation is tracked in DESIGN.md.
package invoice

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const tagHexLen = 16

type Generator struct {
	seed string
}

func NewGenerator(seed string) *Generator {
	return &Generator{seed: seed}
}

// Generate returns "<lowercased chain>_<first 16 hex of sha256(chain:orderID:seed)>".
func (g *Generator) Generate(chain, orderID string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%s", chain, orderID, g.seed)))
	return strings.ToLower(chain) + "_" + hex.EncodeToString(sum[:])[:tagHexLen]
}
