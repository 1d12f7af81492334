package tgtg

import (
	"math/rand/v2"
	"strings"
)

// DefaultAPKVersion is the app version substituted into user agent templates
const DefaultAPKVersion = "23.6.11"

// DefaultUserAgents are the templates the default selector picks from. "{}"
// is replaced by the APK version.
var DefaultUserAgents = []string{
	"TGTG/{} Dalvik/2.1.0 (Linux; U; Android 9; Nexus 5 Build/M4B30Z)",
	"TGTG/{} Dalvik/2.1.0 (Linux; U; Android 10; SM-G935F Build/NRD90M)",
	"TGTG/{} Dalvik/2.1.0 (Linux; Android 12; SM-G920V Build/MMB29K)",
}

// UserAgentSelector picks the user agent template for a client. It is called
// once, at construction.
type UserAgentSelector interface {
	UserAgent() string
}

// FixedUserAgent always returns the same template
type FixedUserAgent string

// UserAgent implements UserAgentSelector
func (f FixedUserAgent) UserAgent() string {
	return string(f)
}

// RandomUserAgent picks one of Templates using Rand, or the global source when
// Rand is nil.
type RandomUserAgent struct {
	Templates []string
	Rand      *rand.Rand
}

// SeededUserAgent returns a deterministic selector over DefaultUserAgents
func SeededUserAgent(seed uint64) *RandomUserAgent {
	return &RandomUserAgent{
		Templates: DefaultUserAgents,
		Rand:      rand.New(rand.NewPCG(seed, seed)),
	}
}

// UserAgent implements UserAgentSelector
func (r *RandomUserAgent) UserAgent() string {
	templates := r.Templates
	if len(templates) == 0 {
		templates = DefaultUserAgents
	}
	if r.Rand != nil {
		return templates[r.Rand.IntN(len(templates))]
	}
	return templates[rand.IntN(len(templates))]
}

func renderUserAgent(template, apkVersion string) string {
	return strings.Replace(template, "{}", apkVersion, 1)
}
