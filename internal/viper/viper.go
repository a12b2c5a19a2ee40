// Package viper provides the ecr-cleanup instance of Viper, so that
// configuration never leaks through Viper's global instance.
package viper

import (
	"sync"

	spfviper "github.com/spf13/viper"
)

var (
	instance *spfviper.Viper
	mu       = sync.Mutex{}
)

// Instance provides the instance of Viper, or lazy-loads a new one
// if one has not been defined.
func Instance() *spfviper.Viper {
	mu.Lock()
	defer mu.Unlock()
	if instance == nil {
		instance = spfviper.New()
	}
	return instance
}

// Reset drops the current instance. The next call to Instance
// starts from an empty configuration.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}
