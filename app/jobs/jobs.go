// Package jobs holds the background work queued after an order is paid.
package jobs

import (
	repo "github.com/feastly/feastly/app/repositories"
	"github.com/feastly/feastly/pkg/queue"
	"github.com/feastly/feastly/pkg/storage"
)

// Deps is shared by every job instance the queue decodes.
type Deps struct {
	Store repo.Store
	// Disk receives receipts. Nil disables archiving.
	Disk        storage.Disk
	WebhookURL  string
	MailEnabled bool
}

// Register makes the jobs decodable by m, injecting d into each instance.
func Register(m *queue.Manager, d *Deps) {
	m.Register(&SendOrderConfirmation{}, func() queue.Job { return &SendOrderConfirmation{deps: d} })
	m.Register(&ArchiveReceipt{}, func() queue.Job { return &ArchiveReceipt{deps: d} })
}
