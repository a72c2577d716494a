package exchange

import "github.com/vitos/crypto_portfolio_guard/internal/domain"

// Registry maps platform names to adapters. Built once at startup; read-only
// after that.
type Registry struct {
	exchanges map[string]domain.Exchange
	names     []string
}

func NewRegistry(exchanges ...domain.Exchange) *Registry {
	r := &Registry{exchanges: make(map[string]domain.Exchange, len(exchanges))}
	for _, ex := range exchanges {
		if _, dup := r.exchanges[ex.Name()]; dup {
			continue
		}
		r.exchanges[ex.Name()] = ex
		r.names = append(r.names, ex.Name())
	}
	return r
}

func (r *Registry) Get(platform string) (domain.Exchange, bool) {
	ex, ok := r.exchanges[platform]
	return ex, ok
}

func (r *Registry) Platforms() []string {
	return r.names
}
