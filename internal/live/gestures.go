package live

import (
	"sort"
	"sync"
)

// GestureTracker remembers the in-flight gestures of each client in a room
// so a tab that joins mid-drag can draw them.
type GestureTracker struct {
	mu       sync.RWMutex
	gestures map[string]map[string]GesturePayload // clientID -> key -> gesture
}

func NewGestureTracker() *GestureTracker {
	return &GestureTracker{gestures: make(map[string]map[string]GesturePayload)}
}

func (gt *GestureTracker) Update(clientID string, g GesturePayload) {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	byKey, ok := gt.gestures[clientID]
	if !ok {
		byKey = make(map[string]GesturePayload)
		gt.gestures[clientID] = byKey
	}
	g.ClientID = clientID
	byKey[g.Key] = g
}

func (gt *GestureTracker) End(clientID, key string) {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	delete(gt.gestures[clientID], key)
	if len(gt.gestures[clientID]) == 0 {
		delete(gt.gestures, clientID)
	}
}

// Remove drops every gesture of clientID and returns the keys it held.
func (gt *GestureTracker) Remove(clientID string) []string {
	gt.mu.Lock()
	defer gt.mu.Unlock()
	keys := make([]string, 0, len(gt.gestures[clientID]))
	for k := range gt.gestures[clientID] {
		keys = append(keys, k)
	}
	delete(gt.gestures, clientID)
	sort.Strings(keys)
	return keys
}

func (gt *GestureTracker) All() []GesturePayload {
	gt.mu.RLock()
	defer gt.mu.RUnlock()
	var out []GesturePayload
	for _, byKey := range gt.gestures {
		for _, g := range byKey {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClientID != out[j].ClientID {
			return out[i].ClientID < out[j].ClientID
		}
		return out[i].Key < out[j].Key
	})
	return out
}
