package history

import "time"

// newID picks an adjective-noun pair, e.g. "quiet-falcon". This
// replaces the original tool's names crate — there's no equivalent
// word-list generator among the pack's dependencies, so a small
// embedded list is the pragmatic stand-in.
func (s *Store) newID() string {
	a := adjectives[s.rand.Intn(len(adjectives))]
	n := nouns[s.rand.Intn(len(nouns))]
	return a + "-" + n
}

func randSeed() int64 {
	return time.Now().UnixNano()
}

var adjectives = []string{
	"quiet", "amber", "brave", "calm", "dusty", "eager", "frosty", "gentle",
	"hollow", "indigo", "jolly", "keen", "lucky", "muddy", "nimble", "olive",
	"plucky", "quick", "rustic", "silver", "tidy", "umber", "vivid", "windy",
	"yellow", "zesty", "bold", "crisp", "dapper", "earnest",
}

var nouns = []string{
	"falcon", "badger", "cedar", "delta", "ember", "finch", "glacier", "heron",
	"ibis", "juniper", "kestrel", "lagoon", "magpie", "nettle", "otter", "pebble",
	"quail", "raven", "summit", "thicket", "urchin", "violet", "willow", "xenon",
	"yarrow", "zephyr", "marten", "cobalt", "dune", "ember",
}
