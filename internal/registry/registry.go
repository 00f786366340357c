package registry

import (
	"sync"

	"github.com/hattiebot/hattiebot/internal/core"
)

// ClientFactory builds an LLM client given an API key and model name.
type ClientFactory func(apiKey, model string) (core.LLMClient, error)

var (
	mu         sync.RWMutex
	LLMClients = make(map[string]ClientFactory)
)

func RegisterClient(name string, f ClientFactory) {
	mu.Lock()
	defer mu.Unlock()
	LLMClients[name] = f
}

func GetClientFactory(name string) (ClientFactory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := LLMClients[name]
	return f, ok
}
