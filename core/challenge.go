package core

import "fmt"

// challengeTemplate is the fixed text a wallet signs to prove ownership.
// The server rebuilds the exact same text from stored state on verify, so
// any drift between issue and verify shows up as a stale challenge.
const challengeTemplate = "Welcome to ChainChat!\n\n" +
	"Sign this message to prove you own this wallet.\n\n" +
	"Wallet: %s\nNonce: %s"

// ChallengeMessage renders the canonical challenge text for an address and
// nonce. Deterministic: same inputs always produce the same text.
func ChallengeMessage(address, nonce string) string {
	return fmt.Sprintf(challengeTemplate, address, nonce)
}
