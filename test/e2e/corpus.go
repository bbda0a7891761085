// Package e2e provides end-to-end tests with a generated labeled corpus and many queries.
package e2e

import (
	"fmt"

	"github.com/hyperjump/intently/internal/corpus"
)

// QueryTestCase defines a query and the intent it must resolve to.
type QueryTestCase struct {
	Query      string
	WantIntent string
}

// Corpus holds labeled examples and query test cases for E2E tests.
type Corpus struct {
	Examples  []corpus.Example
	TestCases []QueryTestCase
	Labels    []string
}

var intents = []struct {
	label      string
	utterances []string
}{
	{"Baggage", []string{"my bag is lost", "where is my suitcase", "luggage did not arrive", "baggage allowance for checked bags"}},
	{"Refund", []string{"I want my money back", "refund my ticket", "how long does a refund take"}},
	{"Cancellation", []string{"cancel my flight", "I need to cancel the booking", "cancellation fee"}},
	{"Check-in", []string{"online check-in is not working", "when does check-in open", "print my boarding pass"}},
	{"Seat", []string{"change my seat", "window seat please", "extra legroom seat"}},
	{"Pet", []string{"can I travel with my dog", "pet in cabin policy"}},
	{"Delay", []string{"my flight is delayed", "compensation for delay", "how late is flight 42"}},
	{"Meal", []string{"vegetarian meal", "is food included", "special meal request"}},
}

// BuildCorpus returns the labeled examples plus, for every utterance, a test case that
// queries it verbatim. The last label also gets a duplicate utterance.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for _, in := range intents {
		c.Labels = append(c.Labels, in.label)
		for _, u := range in.utterances {
			c.Examples = append(c.Examples, corpus.Example{Text: u, Label: in.label})
			c.TestCases = append(c.TestCases, QueryTestCase{Query: u, WantIntent: in.label})
		}
	}
	last := c.Examples[len(c.Examples)-1]
	c.Examples = append(c.Examples, last)
	return c
}

// String summarizes the corpus for test logs.
func (c *Corpus) String() string {
	return fmt.Sprintf("%d examples, %d labels, %d queries", len(c.Examples), len(c.Labels), len(c.TestCases))
}
