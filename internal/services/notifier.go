// Package services holds the outbound integrations: event fan-out, object
// storage, realtime push and the Firebase clients.
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chachabrian/zapshift-backend/internal/models"
)

const deliveryTimeout = 5 * time.Second

// EventSink receives parcel events.
type EventSink interface {
	Publish(ctx context.Context, ev models.ParcelEvent) error
}

// Notifier fans parcel events out to every sink in the background. Delivery
// is best effort: failures are logged and never reach the caller.
type Notifier struct {
	sinks []EventSink
	log   logrus.FieldLogger
	wg    sync.WaitGroup
}

// NewNotifier drops nil sinks so optional integrations can be passed as is.
func NewNotifier(l logrus.FieldLogger, sinks ...EventSink) *Notifier {
	n := &Notifier{log: l}
	for _, s := range sinks {
		if s != nil {
			n.sinks = append(n.sinks, s)
		}
	}
	return n
}

func (n *Notifier) Notify(ctx context.Context, ev models.ParcelEvent) {
	// the request context ends with the response
	ctx = context.WithoutCancel(ctx)
	for _, sink := range n.sinks {
		n.wg.Add(1)
		go func(sink EventSink) {
			defer n.wg.Done()

			sendCtx, cancel := context.WithTimeout(ctx, deliveryTimeout)
			defer cancel()
			if err := sink.Publish(sendCtx, ev); err != nil {
				n.log.WithError(err).WithFields(logrus.Fields{
					"sink":      fmt.Sprintf("%T", sink),
					"event":     ev.Type,
					"parcel_id": ev.ParcelID,
				}).Warn("parcel event delivery failed")
			}
		}(sink)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
