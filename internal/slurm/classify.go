package slurm

import "strings"

// Rule assigns Class to every node whose name contains Match.
type Rule struct {
	Match string
	Class Class
}

// DefaultRules is the node layout of the cluster: node09 and node10 are the
// high-memory nodes, node01-1 is the interactive login node.
var DefaultRules = []Rule{
	{Match: "node09", Class: ClassHighMem},
	{Match: "node10", Class: ClassHighMem},
	{Match: "node01-1", Class: ClassInteractive},
}

// Classifier evaluates rules in order; the first match wins and names that
// match nothing are lowmem. A nil Classifier uses DefaultRules.
type Classifier struct {
	rules []Rule
}

// NewClassifier returns a Classifier over a copy of rules.
func NewClassifier(rules []Rule) *Classifier {
	return &Classifier{rules: append([]Rule(nil), rules...)}
}

// Classify returns the class of the first rule whose Match is a substring of name.
func (c *Classifier) Classify(name string) Class {
	rules := DefaultRules
	if c != nil {
		rules = c.rules
	}
	for _, r := range rules {
		if strings.Contains(name, r.Match) {
			return r.Class
		}
	}
	return ClassLowMem
}

// Rules returns a copy of the rules in evaluation order.
func (c *Classifier) Rules() []Rule {
	if c == nil {
		return append([]Rule(nil), DefaultRules...)
	}
	return append([]Rule(nil), c.rules...)
}
