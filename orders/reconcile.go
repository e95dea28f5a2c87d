package orders

import (
	"context"
	"log/slog"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/monitoring"
)

// Reconcile syncs the store against the broker's authoritative view.
// It runs at engine start and on demand: for every non-terminal local
// record it fetches the broker order by external id, falling back to
// the local id, and overwrites the local status on any mismatch.
// Failures on one order are logged and skipped; the pass never aborts.
// Running it twice with no broker-side change is a no-op.
func Reconcile(ctx context.Context, st *Store, b broker.Broker, log *slog.Logger) error {
	open, err := st.Open()
	if err != nil {
		return err
	}

	for _, o := range open {
		lookupID := o.ExternalID
		if lookupID == "" {
			lookupID = o.ID
		}

		remote, err := b.GetOrder(ctx, lookupID)
		if err != nil {
			log.Warn("reconcile: broker lookup failed, skipping order",
				"order_id", o.ID, "external_id", o.ExternalID, "err", err)
			continue
		}
		if remote == nil {
			log.Warn("reconcile: order unknown to broker, skipping",
				"order_id", o.ID, "external_id", o.ExternalID)
			continue
		}

		want := fromBrokerStatus(remote.Status)
		if want == o.Status {
			continue
		}

		log.Info("reconcile: overwriting local status with broker truth",
			"order_id", o.ID, "local", o.Status, "broker", want)
		monitoring.RecordReconcileOverwrite()

		o.Status = want
		if remote.FilledAvgPrice.Sign() > 0 {
			o.FillPrice = remote.FilledAvgPrice
		}
		if o.ExternalID == "" {
			o.ExternalID = remote.ID
		}
		if err := st.Upsert(o); err != nil {
			log.Warn("reconcile: persist failed, skipping order",
				"order_id", o.ID, "err", err)
		}
	}
	return nil
}
