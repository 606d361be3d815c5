package webtext

import "sync"

var defaultClient = sync.OnceValue(func() *Client { return New() })

// Default returns the process-wide client behind the package-level functions.
// It is built on first use and never torn down.
func Default() *Client { return defaultClient() }

// The package-level calls below mirror the Client methods on Default().

func Get(url string) (string, error) { return Default().Get(url) }

func GetAsync(url string) <-chan Result { return Default().GetAsync(url) }

func GetCallback(url string, cb Callback) { Default().GetCallback(url, cb) }

func GetAsyncCallback(url string, cb Callback) <-chan struct{} {
	return Default().GetAsyncCallback(url, cb)
}

func Post(url, body, contentType string) (string, error) {
	return Default().Post(url, body, contentType)
}

func PostAsync(url, body, contentType string) <-chan Result {
	return Default().PostAsync(url, body, contentType)
}

func PostCallback(url, body string, cb Callback, contentType string) {
	Default().PostCallback(url, body, cb, contentType)
}

func PostAsyncCallback(url, body string, cb Callback, contentType string) <-chan struct{} {
	return Default().PostAsyncCallback(url, body, cb, contentType)
}
