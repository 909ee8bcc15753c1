// Package migrate linearizes a resolved schema into an ordered migration
// plan: one create-table step per table followed by one foreign-key
// attachment step per table with outgoing references. Deferring attachment
// removes any ordering constraint between table creations, and cycle-free
// input (guaranteed by the resolver) makes the two-phase plan safe.
package migrate

import (
	"time"

	"github.com/tordrt/schemaforge/internal/refgraph"
	"github.com/tordrt/schemaforge/internal/schema"
)

// StepKind discriminates the two artifact kinds in a plan.
type StepKind int

const (
	CreateTable StepKind = iota
	AttachForeignKeys
)

func (k StepKind) String() string {
	if k == CreateTable {
		return "create"
	}
	return "attach_fks"
}

// Step is one ordered unit of the plan. CreateTable steps carry the table;
// AttachForeignKeys steps additionally carry the table's outgoing edges.
type Step struct {
	Kind       StepKind
	Table      *schema.Table
	Edges      []refgraph.Edge
	SequenceID string
}

// Plan is the ordered sequence of steps the generator renders.
type Plan struct {
	Steps []Step
}

// sequenceFormat renders fixed-width, lexicographically sortable tokens in
// the familiar migration-timestamp shape.
const sequenceFormat = "2006_01_02_150405"

// Sequencer hands out monotonically increasing sequence ids. The counter, not
// wall-clock time, drives uniqueness: each Next advances one discrete tick
// from the seeded base instant, so two calls can never collide.
type Sequencer struct {
	base time.Time
	tick int64
}

// NewSequencer seeds a sequencer at the given base instant.
func NewSequencer(base time.Time) *Sequencer {
	return &Sequencer{base: base.UTC()}
}

// Next returns the next sequence id token.
func (s *Sequencer) Next() string {
	id := s.base.Add(time.Duration(s.tick) * time.Second).Format(sequenceFormat)
	s.tick++
	return id
}

// Order builds the migration plan. Phase 1 emits a CreateTable step per table
// in input order; phase 2 groups edges by their owning table (again in input
// order) and emits an AttachForeignKeys step per table with outgoing edges.
// Every attachment therefore sequences strictly after both endpoint
// creations.
func Order(s *schema.Schema, edges []refgraph.Edge, seq *Sequencer) *Plan {
	plan := &Plan{}

	for i := range s.Tables {
		plan.Steps = append(plan.Steps, Step{
			Kind:       CreateTable,
			Table:      &s.Tables[i],
			SequenceID: seq.Next(),
		})
	}

	grouped := make(map[string][]refgraph.Edge, len(s.Tables))
	for _, e := range edges {
		grouped[e.SourceTable.ID] = append(grouped[e.SourceTable.ID], e)
	}

	for i := range s.Tables {
		t := &s.Tables[i]
		out := grouped[t.ID]
		if len(out) == 0 {
			continue
		}
		plan.Steps = append(plan.Steps, Step{
			Kind:       AttachForeignKeys,
			Table:      t,
			Edges:      out,
			SequenceID: seq.Next(),
		})
	}

	return plan
}
