package bills

import (
	"context"
	"fmt"
	"log/slog"

	"billed/internal/core"
	"billed/internal/session"
	"billed/internal/store"
)

// Retriever fetches the current user's bills and produces display copies:
// formatted date when the raw value parses (raw passthrough otherwise) and
// the French status label in place of the internal code.
type Retriever struct {
	lister  store.BillLister
	session session.Store
}

func NewRetriever(lister store.BillLister, sess session.Store) *Retriever {
	return &Retriever{lister: lister, session: sess}
}

// GetBills returns the display copies of all bills of the current user, in
// the order the store returns them (date descending per the store contract).
// A store failure propagates; no retry, no partial result.
func (r *Retriever) GetBills(ctx context.Context) ([]core.BillView, error) {
	user, err := session.CurrentUser(r.session)
	if err != nil {
		return nil, fmt.Errorf("read session user: %w", err)
	}

	raw, err := r.lister.ListBills(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}

	views := make([]core.BillView, len(raw))
	for i, b := range raw {
		if _, err := core.FormatDisplayDate(b.Date); err != nil {
			// Corrupted date: keep the raw string rather than failing the list.
			slog.WarnContext(ctx, "Unparsable bill date, keeping raw value",
				"bill_id", b.ID,
				"date", b.Date)
		}
		views[i] = b.View()
	}

	slog.DebugContext(ctx, "Bills retrieved", "email", user.Email, "count", len(views))
	return views, nil
}
