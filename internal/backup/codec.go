// Package backup serializes the full register state to a single JSON
// document and restores it from one. Import is all-or-nothing from the
// caller's point of view: validation happens completely before any write.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/example/vereinskasse/internal/domain"
	"github.com/example/vereinskasse/internal/state"
)

var (
	ErrMalformedJSON = errors.New("backup file is not valid JSON")
	ErrMissingField  = errors.New("backup file is missing a required field")
)

// requiredFields lists the top-level keys an import must carry. The check is
// presence, not shape: activeEventId and eventProducts may be explicit null,
// the four collection fields may not.
var requiredFields = []string{
	"categories",
	"products",
	"events",
	"transactions",
	"eventProducts",
	"activeEventId",
}

var nullableFields = map[string]bool{
	"activeEventId": true,
	"eventProducts": true,
}

type Codec struct {
	log logrus.FieldLogger
	now func() time.Time
}

func NewCodec(log logrus.FieldLogger) *Codec {
	return &Codec{log: log, now: time.Now}
}

// Export snapshots all six cells into a backup envelope and returns the
// conventional filename for it, which embeds the current date.
func (c *Codec) Export(st *state.State) (domain.Backup, string) {
	st.Lock()
	defer st.Unlock()

	filename := fmt.Sprintf("vereinskasse-backup-%s.json", c.now().Format("2006-01-02"))
	return st.Snapshot(), filename
}

// Import parses and validates the document, then replaces every cell with
// its content. Beyond field presence nothing is validated structurally;
// dangling references in the imported data are reported as warnings, never
// as errors. After a successful import the caller must force a full reload
// so all derived views recompute from the new ground truth.
func (c *Codec) Import(ctx context.Context, st *state.State, doc []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(doc, &raw); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	for _, field := range requiredFields {
		payload, ok := raw[field]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingField, field)
		}
		if !nullableFields[field] && string(payload) == "null" {
			return fmt.Errorf("%w: %s", ErrMissingField, field)
		}
	}

	var b domain.Backup
	if err := json.Unmarshal(doc, &b); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	c.reportDanglingReferences(b)

	st.Lock()
	defer st.Unlock()
	return st.Replace(ctx, b)
}

// reportDanglingReferences surfaces the tolerated inconsistencies as
// non-fatal diagnostics so an operator restoring a backup can see them.
func (c *Codec) reportDanglingReferences(b domain.Backup) {
	categories := make(map[string]struct{}, len(b.Categories))
	for _, cat := range b.Categories {
		categories[cat.ID] = struct{}{}
	}
	products := make(map[string]struct{}, len(b.Products))
	for _, p := range b.Products {
		products[p.ID] = struct{}{}
	}
	events := make(map[string]struct{}, len(b.Events))
	for _, e := range b.Events {
		events[e.ID] = struct{}{}
	}

	for _, p := range b.Products {
		if _, ok := categories[p.CategoryID]; !ok {
			c.log.WithFields(logrus.Fields{"product": p.ID, "category": p.CategoryID}).
				Warn("imported product references a missing category")
		}
	}
	for eventID, ids := range b.EventProducts {
		if _, ok := events[eventID]; !ok {
			c.log.WithField("event", eventID).
				Warn("imported assignment entry references a missing event")
		}
		for _, id := range ids {
			if _, ok := products[id]; !ok {
				c.log.WithFields(logrus.Fields{"event": eventID, "product": id}).
					Warn("imported assignment set contains a missing product")
			}
		}
	}
	for _, tx := range b.Transactions {
		if _, ok := events[tx.EventID]; !ok {
			c.log.WithFields(logrus.Fields{"transaction": tx.ID, "event": tx.EventID}).
				Warn("imported transaction is orphaned from its event")
		}
	}
	if b.ActiveEventID != nil {
		if _, ok := events[*b.ActiveEventID]; !ok {
			c.log.WithField("event", *b.ActiveEventID).
				Warn("imported active event id references a missing event")
		}
	}
}
