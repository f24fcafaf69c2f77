package cache

import "sync"

// The script encryption key is process-global, mirroring the engine.
// Any operation that installs a caller-provided key must restore the
// previous value on every exit path; WithScriptKey does that.

var (
	scriptKeyMu sync.Mutex
	scriptKey   [32]byte
	scriptKeySet bool
)

// SetScriptKey installs the 32-byte script encryption key.
func SetScriptKey(key [32]byte) {
	scriptKeyMu.Lock()
	defer scriptKeyMu.Unlock()
	scriptKey = key
	scriptKeySet = true
}

// ScriptKey returns the current key and whether one has been set.
func ScriptKey() ([32]byte, bool) {
	scriptKeyMu.Lock()
	defer scriptKeyMu.Unlock()
	return scriptKey, scriptKeySet
}

// ClearScriptKey forgets the current key.
func ClearScriptKey() {
	scriptKeyMu.Lock()
	defer scriptKeyMu.Unlock()
	scriptKey = [32]byte{}
	scriptKeySet = false
}

// WithScriptKey runs fn with key temporarily installed, restoring the
// previous key whether or not fn fails.
func WithScriptKey(key [32]byte, fn func() error) error {
	scriptKeyMu.Lock()
	prev, prevSet := scriptKey, scriptKeySet
	scriptKey = key
	scriptKeySet = true
	scriptKeyMu.Unlock()

	defer func() {
		scriptKeyMu.Lock()
		scriptKey, scriptKeySet = prev, prevSet
		scriptKeyMu.Unlock()
	}()
	return fn()
}
