package joint

import (
	"strings"

	"github.com/chazu/threedframe/pkg/config"
)

// BuildFlags gates the parts of a joint that are assembled.
type BuildFlags uint8

const (
	BuildCore BuildFlags = 1 << iota
	BuildFixtures
	BuildCoreLabel
	BuildFixtureLabel

	BuildLabels = BuildCoreLabel | BuildFixtureLabel
	BuildJoint  = BuildCore | BuildFixtures | BuildLabels
)

// Has reports whether every flag in x is set.
func (f BuildFlags) Has(x BuildFlags) bool { return f&x == x }

func (f BuildFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var parts []string
	for _, x := range []struct {
		flag BuildFlags
		name string
	}{
		{BuildCore, "CORE"},
		{BuildFixtures, "FIXTURES"},
		{BuildCoreLabel, "CORE_LABEL"},
		{BuildFixtureLabel, "FIXTURE_LABEL"},
	} {
		if f.Has(x.flag) {
			parts = append(parts, x.name)
		}
	}
	return strings.Join(parts, "|")
}

// FlagsFromConfig maps the build section onto flags.
func FlagsFromConfig(b config.BuildConfig) BuildFlags {
	var f BuildFlags
	if b.Core {
		f |= BuildCore
	}
	if b.Fixtures {
		f |= BuildFixtures
	}
	if b.CoreLabel {
		f |= BuildCoreLabel
	}
	if b.FixtureLabel {
		f |= BuildFixtureLabel
	}
	return f
}
