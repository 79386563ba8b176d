package slurm

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyDefaultRules(t *testing.T) {
	c := NewClassifier(DefaultRules)
	tests := map[string]Class{
		"node09-3":  ClassHighMem,
		"node10-12": ClassHighMem,
		"node01-1":  ClassInteractive,
		"node01-10": ClassInteractive,
		"node01-2":  ClassLowMem,
		"node04-7":  ClassLowMem,
		"hardac-1":  ClassLowMem,
	}
	for name, want := range tests {
		require.Equal(t, want, c.Classify(name), name)
		require.Equal(t, c.Classify(name), c.Classify(name), "classification must be stable for %s", name)
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	c := NewClassifier([]Rule{
		{Match: "gpu", Class: ClassInteractive},
		{Match: "gpu-big", Class: ClassHighMem},
	})
	require.Equal(t, ClassInteractive, c.Classify("gpu-big-1"))
	require.Equal(t, ClassLowMem, c.Classify("cpu-1"))
}

func TestNilClassifierUsesDefaults(t *testing.T) {
	var c *Classifier
	require.Equal(t, ClassHighMem, c.Classify("node09-1"))
	require.Equal(t, DefaultRules, c.Rules())
}

func TestClassifierCopiesRules(t *testing.T) {
	rules := []Rule{{Match: "big", Class: ClassHighMem}}
	c := NewClassifier(rules)
	rules[0].Class = ClassInteractive
	require.Equal(t, ClassHighMem, c.Classify("big1"))
}

func TestParseClass(t *testing.T) {
	c, ok := ParseClass("himem")
	require.True(t, ok)
	require.Equal(t, ClassHighMem, c)
	_, ok = ParseClass("gpu")
	require.False(t, ok)
}
