package http

import (
	"sync"
	"time"
)

const (
	rateLimitPerMinute   = 60
	rateLimitWindow      = time.Minute
	rateLimitCleanupTick = 5 * time.Minute
	rateLimitStaleAfter  = 10 * time.Minute
)

type clientInfo struct {
	count    int
	lastSeen time.Time
	window   time.Time
}

// rateLimiter tracks per-IP request counts over a sliding one-minute window.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	done    chan struct{}
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients: make(map[string]*clientInfo),
		done:    make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	info, ok := rl.clients[clientIP]
	if !ok {
		rl.clients[clientIP] = &clientInfo{count: 1, lastSeen: now, window: now}
		return true
	}

	info.lastSeen = now
	if now.Sub(info.window) >= rateLimitWindow {
		info.window = now
		info.count = 1
		return true
	}

	info.count++
	return info.count <= rateLimitPerMinute
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rateLimitCleanupTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rateLimitStaleAfter)
	for ip, info := range rl.clients {
		if info.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	close(rl.done)
}
