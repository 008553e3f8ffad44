package version

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestCurrentDefaults(t *testing.T) {
	info := Current()
	assert.NotEmpty(t, info.Version)
}

func TestCurrentTrimsOverrides(t *testing.T) {
	origVersion, origCommit, origDate := Version, GitCommit, BuildDate
	t.Cleanup(func() { Version, GitCommit, BuildDate = origVersion, origCommit, origDate })

	Version = "  "
	GitCommit = " abc123def456\n"
	BuildDate = "2024-01-15T10:30:00Z"

	info := Current()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "abc123def456", info.GitCommit)
	assert.Equal(t, "2024-01-15T10:30:00Z", info.BuildDate)
	assert.Empty(t, info.GitMessage)
}

func TestColored(t *testing.T) {
	orig := color.NoColor
	t.Cleanup(func() { color.NoColor = orig })

	color.NoColor = true
	for _, v := range []string{"0.1.0", "0.1.0-dev", "1.2.3-rc.1+build.123", "dev", "1.2"} {
		assert.Equal(t, v, Colored(v))
	}

	color.NoColor = false
	got := Colored("1.2.3-dev")
	assert.NotEqual(t, "1.2.3-dev", got)
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, "-dev")
}
