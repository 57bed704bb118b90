package strategyrt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shinertx/memev1/internal/domain"
)

type stubStrategy struct{ id string }

func (s *stubStrategy) ID() string                        { return s.id }
func (s *stubStrategy) Subscriptions() []domain.EventKind  { return nil }
func (s *stubStrategy) Init(map[string]any) error          { return nil }
func (s *stubStrategy) OnEvent(domain.MarketEvent) (domain.StrategyAction, error) {
	return domain.Hold(), nil
}

func TestRegistryGetUnknownFamily(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get("nope")
	assert.Error(t, err)
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register("stub", func(id string) Strategy { return &stubStrategy{id: id} })

	ctor, err := r.Get("stub")
	assert.NoError(t, err)
	s := ctor("A")
	assert.Equal(t, "A", s.ID())
}

func TestRegistryListSorted(t *testing.T) {
	r := NewRegistry()
	r.Register("zzz", func(id string) Strategy { return &stubStrategy{id: id} })
	r.Register("aaa", func(id string) Strategy { return &stubStrategy{id: id} })

	assert.Equal(t, []string{"aaa", "zzz"}, r.List())
}
