package webtext

// Get blocks until the GET completes and returns the body text.
// Transport failures are returned as *TransportError.
func (c *Client) Get(url string) (string, error) {
	return c.plain(getRequest(url))
}

// GetAsync runs Get off the caller's goroutine. The channel yields one Result and closes.
func (c *Client) GetAsync(url string) <-chan Result {
	return goResult(func() (string, error) { return c.Get(url) })
}

// GetCallback performs the GET on a call-scoped transport and invokes cb once
// before returning: cb(body, status) on success, cb("Error: "+msg, 0) on failure.
func (c *Client) GetCallback(url string, cb Callback) {
	c.scoped(getRequest(url), cb)
}

// GetAsyncCallback is GetCallback off the caller's goroutine. The channel is
// closed after cb has returned.
func (c *Client) GetAsyncCallback(url string, cb Callback) <-chan struct{} {
	return goDone(func() { c.GetCallback(url, cb) })
}
