// internal/slugs/slugs.go
//
// Human-readable slug generation for replay URLs.
//
// Responsibilities:
//   - Keep the adjective/noun vocabulary used to build slugs.
//   - Generate candidate slugs of the form "<adjective>_<noun><NNNN>".
//   - Validate that a string looks like a slug we could have produced.
//
// Uniqueness is NOT guaranteed here: the write-behind queue consumer retries
// Generate against storage until the candidate is unused.
//
// Shape examples: "plucky_otter0042", "solemn_heron1377".

package slugs

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

var adjectives = []string{
	"honest", "happy", "sad", "angry", "sorry", "lonely", "afraid", "hot", "crazy", "guilty",
	"proud", "hungry", "scared", "bored", "hurt", "smug", "amused", "loved", "sick", "pained",
	"sleepy", "calm", "lively", "bold", "humble", "fair", "candid", "kind", "loyal", "brave",
	"caring", "witty", "astute", "wise", "active", "neat", "polite", "mature", "lucky", "loving",
	"nice", "gentle", "posh", "secure", "good", "funny", "plucky", "aware", "sassy", "sappy",
	"bright", "tidy", "smart", "joyful", "antsy", "silly", "quiet", "modern", "shy", "basic",
	"folksy", "solemn", "unique", "casual", "breezy", "frugal", "soft", "tough", "frank", "modest",
	"timid", "strict", "cocky", "sleazy", "mean", "cruel", "morbid", "stingy", "rude", "bossy",
	"catty", "bad", "evil", "flaky", "nosy", "petty", "untidy", "boring", "dense", "dim",
	"greedy", "grumpy", "lazy", "moody", "rotten", "vain",
}

var nouns = []string{
	"dog", "cow", "cat", "horse", "donkey", "tiger", "lion", "panther", "leopard", "cheetah",
	"bear", "elephant", "turtle", "tortoise", "rabbit", "hare", "hen", "pigeon",
	"crow", "fish", "dolphin", "frog", "whale", "eagle", "squirrel", "ostrich", "fox",
	"goat", "jackal", "emu", "eel", "goose", "wolf", "beagle", "gorilla",
	"monkey", "beaver", "antelope", "bat", "badger", "giraffe", "crab", "panda",
	"hamster", "cobra", "shark", "camel", "hawk", "deer", "jaguar", "ibex",
	"lizard", "koala", "kangaroo", "iguana", "llama", "dodo", "hedgehog", "zebra", "possum",
	"wombat", "bison", "bull", "buffalo", "sheep", "meerkat", "mouse", "otter", "sloth", "owl",
	"vulture", "flamingo", "racoon", "mole", "duck", "swan", "lynx", "heron", "elk",
	"boar", "lemur", "mule", "baboon", "mammoth", "rat", "snake", "peacock",
}

// Generate returns a random slug candidate. Collisions are possible; callers
// that need uniqueness must check against storage and call again.
func Generate() string {
	a := adjectives[randN(len(adjectives))]
	n := nouns[randN(len(nouns))]
	return fmt.Sprintf("%s_%s%04d", a, n, randN(10000))
}

// Valid reports whether s has the "<word>_<word><digits>" shape produced by
// Generate. It does not check vocabulary membership.
func Valid(s string) bool {
	parts := strings.SplitN(s, "_", 2)
	if len(parts) != 2 || parts[0] == "" {
		return false
	}
	rest := parts[1]
	i := 0
	for i < len(rest) && rest[i] >= 'a' && rest[i] <= 'z' {
		i++
	}
	if i == 0 || i == len(rest) {
		return false
	}
	for _, c := range rest[i:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	for _, c := range parts[0] {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// randN returns a cryptographically random int in [0, n).
func randN(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}
