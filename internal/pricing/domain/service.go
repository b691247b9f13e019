package domain

import (
	"time"

	catalogdomain "github.com/smallbiznis/quotient/internal/catalog/domain"
)

// Service resolves prices over already-loaded catalog rows. It performs
// no I/O; loading the entry and contract is the caller's job.
type Service interface {
	Resolve(entry *catalogdomain.PriceBookEntry, quantity int64, contract *catalogdomain.Contract, at time.Time) (*Resolution, error)
}
