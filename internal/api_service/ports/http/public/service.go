package public

import (
	"context"
	"time"

	"github.com/langowen/currency/internal/entities"
)

type Service interface {
	List() []entities.Currency
	Current() entities.Currency
	SetCurrent(ctx context.Context, code string) error
	Refresh(ctx context.Context) bool
	ShouldRefresh() bool
	LastUpdateTime() (time.Time, bool)
	ToDisplay(amount float64) float64
	ToReference(amount float64) float64
	Format(amount float64) string
}
