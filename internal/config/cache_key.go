package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionSnapshotKey returns the cache key holding an owner's serialized exam session
func (r *CacheKeyStruct) SessionSnapshotKey(owner string) string {
	return fmt.Sprintf("portal:%s:exam_session", owner)
}

// PortalLoginKey returns the cache key registering a portal token id for an owner
func (r *CacheKeyStruct) PortalLoginKey(owner string) string {
	return fmt.Sprintf("portal:%s:login", owner)
}

var CacheKey = NewCacheKeyStruct()
