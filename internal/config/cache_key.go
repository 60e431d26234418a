package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStartKey returns the cache key for a session's start time (Unix seconds).
func (r *CacheKeyStruct) SessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:%s:start", sessionID)
}

// SessionDurationKey returns the cache key for a session's duration in minutes.
func (r *CacheKeyStruct) SessionDurationKey(sessionID string) string {
	return fmt.Sprintf("session:%s:duration", sessionID)
}

// SessionAnswersKey returns the cache key for a session's live answer buffer.
func (r *CacheKeyStruct) SessionAnswersKey(sessionID string) string {
	return fmt.Sprintf("session:%s:answers", sessionID)
}

// SessionResultKey returns the cache key for a session's finalized result payload.
func (r *CacheKeyStruct) SessionResultKey(sessionID string) string {
	return fmt.Sprintf("session:%s:result", sessionID)
}

var CacheKey = NewCacheKeyStruct()
