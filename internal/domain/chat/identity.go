package chat

import (
	"encoding/hex"
	"sort"
	"strings"
)

// DeriveIdentity builds the encryption scope token for a conversation. The
// token binds ciphertext to the conversation and its participant set: the
// participants are sorted into canonical order before being joined with the
// conversation id, then hex encoded into a stable byte representation.
//
// The same inputs must always produce a byte-identical token regardless of
// the order participants are supplied in. The decryption backend rejects any
// token that differs from the one used at encryption time, so determinism
// here is what lets both members of the pair open each other's messages.
func DeriveIdentity(conversationID string, participants []string) string {
	sorted := make([]string, len(participants))
	copy(sorted, participants)
	sort.Strings(sorted)

	canonical := conversationID + "|" + strings.Join(sorted, "|")
	return hex.EncodeToString([]byte(canonical))
}
