// Package notify tells the user when a compaction left new offers in the
// store. Compaction always commits first; a failed delivery never undoes it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"offerwatch/internal/scrape/util"
	"offerwatch/internal/store"
)

// Message is what every channel delivers.
type Message struct {
	Query          string
	Count          int
	Subject        string
	Body           string
	AttachmentPath string
	AttachmentName string
}

// Channel delivers a message to one recipient.
type Channel interface {
	Name() string
	Send(ctx context.Context, recipient string, m Message) error
}

// DeliveryError is a failed delivery on one channel.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver via %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

type CompactFunc func(ctx context.Context, path string, today time.Time) (int, error)

type Notifier struct {
	Channels []Channel
	Compact  CompactFunc
	Now      func() time.Time
}

func New(channels ...Channel) *Notifier {
	return &Notifier{Channels: channels, Compact: store.Compact, Now: time.Now}
}

// NotifyIfNew compacts the store and, when offers were collected today,
// sends the store to recipient on every channel. It returns the count of
// today's offers, which stays valid even when delivery fails.
func (n *Notifier) NotifyIfNew(ctx context.Context, storePath, recipient, query string) (int, error) {
	compact := n.Compact
	if compact == nil {
		compact = store.Compact
	}
	now := n.Now
	if now == nil {
		now = time.Now
	}

	count, err := compact(ctx, storePath, now())
	if err != nil {
		return 0, fmt.Errorf("compact store: %w", err)
	}
	if count == 0 {
		log.Printf("[notify] nothing new query=%q", query)
		return 0, nil
	}
	if len(n.Channels) == 0 {
		log.Printf("[notify] new=%d but no channel configured", count)
		return count, nil
	}

	msg := BuildMessage(query, count, storePath)

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, ch := range n.Channels {
		ch := ch
		g.Go(func() error {
			if err := ch.Send(ctx, recipient, msg); err != nil {
				log.Printf("[notify] channel=%s error: %v", ch.Name(), err)
				mu.Lock()
				errs = append(errs, &DeliveryError{Channel: ch.Name(), Err: err})
				mu.Unlock()
				return nil // best-effort: other channels still deliver
			}
			log.Printf("[notify] channel=%s sent new=%d to=%s", ch.Name(), count, recipient)
			return nil
		})
	}
	_ = g.Wait()

	return count, errors.Join(errs...)
}

// BuildMessage names the query and the count and attaches the store.
func BuildMessage(query string, count int, storePath string) Message {
	noun := "nouvelle offre"
	if count > 1 {
		noun = "nouvelles offres"
	}
	name := filepath.Base(storePath)
	if slug := util.Slug(query); slug != "" {
		name = "offres-" + slug + filepath.Ext(storePath)
	}
	return Message{
		Query:   query,
		Count:   count,
		Subject: fmt.Sprintf("%d %s pour « %s »", count, noun, query),
		Body: fmt.Sprintf("Bonjour,\n\n%d %s pour la recherche « %s » aujourd'hui.\n"+
			"Le fichier complet est en pièce jointe.\n", count, noun, query),
		AttachmentPath: storePath,
		AttachmentName: name,
	}
}
