package ws

import "github.com/banshee-data/routeplay/internal/sim"

// sessionForTest returns the session owned by any connected client, or nil.
// Tests cannot see the server-generated connection identities, so they reach
// through the client map instead.
func (h *Handler) sessionForTest() *sim.Session {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id := range h.clients {
		if s := h.registry.Session(id); s != nil {
			return s
		}
	}
	return nil
}
