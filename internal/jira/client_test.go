package jira

import (
	"strings"
	"testing"
)

func TestCompletedEpicsJQL(t *testing.T) {
	cfg := Config{Project: "PLAT", Team: "Falcons"}

	jql := cfg.CompletedEpicsJQL(365)

	want := `project = PLAT AND issuetype = Epic AND "Squad[Dropdown]" = "Falcons" ` +
		`AND statusCategory = Done AND resolved >= "-365d" ORDER BY resolved DESC`
	if jql != want {
		t.Errorf("CompletedEpicsJQL() = %q, want %q", jql, want)
	}
}

func TestOpenEpicsJQL(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		cycle string
		want  string
	}{
		{
			"WithCycle",
			Config{Project: "PLAT"},
			"2026-Q3",
			`project = PLAT AND issuetype = Epic AND statusCategory != Done AND fixVersion = "2026-Q3" ORDER BY key ASC`,
		},
		{
			"WithoutCycle",
			Config{Project: "PLAT"},
			"",
			`project = PLAT AND issuetype = Epic AND statusCategory != Done ORDER BY key ASC`,
		},
		{
			"CustomTeamField",
			Config{Project: "PLAT", TeamField: "Team[Dropdown]", Team: "Core"},
			"",
			`project = PLAT AND issuetype = Epic AND "Team[Dropdown]" = "Core" AND statusCategory != Done ORDER BY key ASC`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.OpenEpicsJQL(tt.cycle); got != tt.want {
				t.Errorf("OpenEpicsJQL(%q) = %q, want %q", tt.cycle, got, tt.want)
			}
		})
	}
}

func TestMissingDatesJQL(t *testing.T) {
	cfg := Config{Project: "PLAT"}

	jql := cfg.MissingDatesJQL()

	for _, fragment := range []string{
		"statusCategory = Done",
		"cf[10015] is EMPTY",
		"cf[10233] is EMPTY",
	} {
		if !strings.Contains(jql, fragment) {
			t.Errorf("MissingDatesJQL() = %q, missing %q", jql, fragment)
		}
	}
}
